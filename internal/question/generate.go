package question

import (
	"context"
	"fmt"
	"strings"

	"github.com/kenshulab/reportchat/internal/document"
	"github.com/kenshulab/reportchat/internal/llm"
)

const generateSystemPrompt = "あなたは“研修のふり返り”を促す専門家です。" +
	"以下の資料抜粋をざっくり把握し、学習者が答えやすい自然な問いを" +
	"日本語で短く作ってください。" +
	"・『Q1.』などの番号や記号は付けない\n" +
	"・1行1問い、簡潔、具体\n" +
	"・最初は感想→次に学び→最後に現場での適用/次の一歩、の順が望ましい"

// Generator drafts short reflective questions from a document snippet
// via the LLM. Used when the session's question source is "llm"; it is
// the alternative to marker extraction, not a supplement.
type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate asks for n questions grounded in docText. LLM failures
// propagate to the caller untouched.
func (g *Generator) Generate(ctx context.Context, docText string, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}
	snippet := document.Snippet(strings.TrimSpace(docText), 6000, 2500)

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: generateSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("【資料抜粋】\n%s\n\n出力：箇条書き（- で始める）。%d個。", snippet, n)},
	}

	out, err := g.client.Complete(ctx, msgs, llm.Options{Temperature: llm.Temp(0.3)})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	return ParseGenerated(out, n), nil
}

// numberPrefixes are leading tokens the model sometimes adds despite
// instructions; they are stripped along with trailing punctuation.
var numberPrefixes = []string{"Q1", "Q2", "Q3", "Q4", "１", "２", "３"}

// ParseGenerated pulls at most n questions out of the model's bullet
// list, stripping bullets and stray numbering.
func ParseGenerated(text string, n int) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, " ・-‐*●\t"))
		if line == "" {
			continue
		}
		for _, pref := range numberPrefixes {
			if strings.HasPrefix(line, pref) {
				line = strings.TrimLeft(strings.TrimPrefix(line, pref), ".．:：）) 」　 ")
				break
			}
		}
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) >= n {
			break
		}
	}
	return questions
}
