// Package question turns document text into an ordered list of
// reflection questions, either by scanning for question-marker lines or
// by asking the LLM to draft them from a document snippet. The two
// strategies are never combined within one session.
package question

import (
	"regexp"
	"strings"
)

// DefaultMax bounds extraction when the caller does not care.
const DefaultMax = 10

// markerPatterns are tried in priority order against each line; the
// first match wins. Order matters because the forms overlap (a bare
// "Q:" line would also satisfy the looser numbered variants). Digit and
// punctuation classes include the full-width forms since Japanese
// training decks mix both freely.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[\s　]*[QＱ][\s　]*[:：][\s　]*(.+)$`),
	regexp.MustCompile(`^[\s　]*[QＱ][\s　]*[0-9０-９]+[\s　]*[:：.．)）-]?[\s　]*(.+)$`),
	regexp.MustCompile(`^[\s　]*問[\s　]*[0-9０-９]+[\s　]*[:：.．)）-]?[\s　]*(.+)$`),
	regexp.MustCompile(`^[\s　]*【?問[0-9０-９]+】?[\s　]*(.+)$`),
	regexp.MustCompile(`^[\s　]*問題[\s　]*[:：][\s　]*(.+)$`),
}

// Extract scans text line by line for question markers (Q:, Q1., 問2,
// 【問3】, 問題: and their full-width variants) and returns the marker
// remainders in document order, deduplicated with first occurrence
// winning, capped at maxQ. It is pure and deterministic and never
// fails: marker-free or malformed text yields an empty slice.
func Extract(text string, maxQ int) []string {
	if maxQ <= 0 {
		maxQ = DefaultMax
	}

	questions := make([]string, 0, maxQ)
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, rx := range markerPatterns {
			m := rx.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			q := strings.TrimRight(strings.TrimSpace(m[1]), " \t　")
			if q != "" && !seen[q] {
				seen[q] = true
				questions = append(questions, q)
			}
			break
		}
		if len(questions) >= maxQ {
			break
		}
	}

	return questions
}
