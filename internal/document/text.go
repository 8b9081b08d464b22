package document

import (
	"bufio"
	"bytes"
	"strings"
)

// extractPlainText reads a text file line by line, normalizing line
// endings and trimming trailing whitespace per line.
func extractPlainText(data []byte) (string, int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return "", 0, err
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", 0, nil
	}
	return text, 1, nil
}
