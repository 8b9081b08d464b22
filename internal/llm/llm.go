package llm

import "context"

// Message is a single role-tagged chat entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options tune a single completion request.
type Options struct {
	Temperature *float64
	MaxTokens   int
}

// Temp is a convenience for building Options literals.
func Temp(t float64) *float64 { return &t }

// Client generates chat completions. Stream delivers the response as
// ordered text chunks via onChunk and returns the concatenated whole
// once the stream has completed; no partial result is returned on error.
type Client interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (string, error)
	Stream(ctx context.Context, msgs []Message, opts Options, onChunk func(string)) (string, error)
}
