package document

// Excerpt returns at most max runes from the start of text. Bounds are
// rune counts: these excerpts carry Japanese text and byte slicing
// would cut multi-byte sequences in half.
func Excerpt(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// Snippet bounds text for prompt inclusion. Short documents pass
// through whole; anything longer than head+tail+500 runes is reduced to
// the first head runes, an ellipsis line, and the last tail runes so
// both the opening context and the closing sections stay visible.
func Snippet(text string, head, tail int) string {
	runes := []rune(text)
	if len(runes) <= head+tail+500 {
		return text
	}
	return string(runes[:head]) + "\n...\n" + string(runes[len(runes)-tail:])
}
