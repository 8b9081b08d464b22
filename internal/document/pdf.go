package document

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// extractPDF pulls the text layer out of a PDF. Per-page text is joined
// with newlines in page order; a page with no text layer contributes an
// empty string so page ordering is preserved. The ledongthuc reader
// panics on some malformed inputs, so extraction runs under recover.
func extractPDF(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pageTexts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pageTexts = append(pageTexts, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			pageTexts = append(pageTexts, "")
			continue
		}
		pageTexts = append(pageTexts, pageText)
	}

	return strings.TrimSpace(strings.Join(pageTexts, "\n")), numPages, nil
}
