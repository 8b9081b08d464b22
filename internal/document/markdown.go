package document

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown flattens a Markdown document to plain text using the
// goldmark AST. Headings and blocks each become their own line so that
// line-oriented question markers survive the flattening.
func extractMarkdown(data []byte) (string, int, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var lines []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if t := string(node.Text(data)); t != "" {
				lines = append(lines, t)
			}
		default:
			if t := nodeText(n, data); t != "" {
				lines = append(lines, t)
			}
		}
	}

	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if out == "" {
		return "", 0, nil
	}
	return out, 1, nil
}

// nodeText gets the text content of a goldmark AST node. Blocks that
// carry raw source lines use them directly; containers recurse.
func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else if t := nodeText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
