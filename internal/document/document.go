package document

import (
	"path/filepath"
	"strings"
)

// DefaultTitle is used when no usable filename accompanies an upload.
const DefaultTitle = "研修レポート"

// Document is the flattened text of an uploaded training document.
// Empty Text with zero PageCount is a valid state: it means the file
// had no extractable text layer (scanned PDF, corrupt upload), not an
// error.
type Document struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
	Title     string `json:"title"`
}

// HasText reports whether any usable text was extracted.
func (d Document) HasText() bool { return d.Text != "" }

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".md":   true,
	".txt":  true,
	".html": true,
	".htm":  true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// TitleFromFilename derives a document title from the uploaded filename
// by stripping the path and extension.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.TrimSpace(title)
	if title == "" || title == "." {
		return DefaultTitle
	}
	return title
}

// Extract converts raw upload bytes into a Document. It never fails:
// any parse error (or panic from the PDF library on malformed input)
// degrades to an empty document so the caller can branch on HasText.
func Extract(data []byte, filename string) Document {
	doc := Document{Title: TitleFromFilename(filename)}

	text, pages, err := extract(data, filename)
	if err != nil {
		return doc
	}
	doc.Text = text
	doc.PageCount = pages
	return doc
}

func extract(data []byte, filename string) (text string, pages int, err error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".md", ".markdown":
		return extractMarkdown(data)
	case ".html", ".htm":
		return extractHTML(data)
	default:
		return extractPlainText(data)
	}
}
