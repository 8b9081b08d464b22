// Package report assembles the final summary draft from the collected
// user answers and a bounded excerpt of the uploaded document.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/kenshulab/reportchat/internal/document"
	"github.com/kenshulab/reportchat/internal/llm"
	"github.com/kenshulab/reportchat/internal/session"
)

const draftSystemPrompt = "あなたは日本語で、簡潔で誇張のない文体の編集者です。" +
	"事実に基づき、断定しすぎず、丁寧に書きます。"

const draftInstructionFormat = `次の情報（PDF抜粋と受講生の回答）だけを根拠に、短い感想文を作ってください。
- 出力フォーマットは厳守：最初の行に【%s】、空行1つ、次の行から本文のみ。
- 本文は300〜450文字程度。比喩や煽りは使わず、断定しすぎない表現（〜と感じた／〜に気づいた等）を用いる。
- 事実にない内容は書かない。推測・決めつけ・一般化のしすぎを避ける。
- 箇条書きにしない。小見出し（はじめに 等）は付けない。
- 「です・ます」調で統一。末尾に注記や指示文を入れない。

[PDF抜粋]
%s

[受講生の回答]
%s`

// Drafter builds report drafts. Drafting is deliberately uncached:
// every call issues a fresh completion and the caller overwrites any
// previously stored draft.
type Drafter struct {
	client       llm.Client
	excerptChars int
}

// NewDrafter creates a Drafter. excerptChars bounds the document
// excerpt used for grounding (runes).
func NewDrafter(client llm.Client, excerptChars int) *Drafter {
	if excerptChars <= 0 {
		excerptChars = 3500
	}
	return &Drafter{client: client, excerptChars: excerptChars}
}

// Draft produces the report text: a 【title】 first line, one blank
// line, then a short restrained body grounded only in the document
// excerpt and the user's answers. LLM failures propagate unchanged.
func (d *Drafter) Draft(ctx context.Context, snap session.Snapshot) (string, error) {
	var answers []string
	for _, m := range snap.Transcript {
		if m.Role == llm.RoleUser {
			answers = append(answers, m.Content)
		}
	}

	excerpt := document.Excerpt(strings.TrimSpace(snap.Document.Text), d.excerptChars)
	title := snap.Document.Title
	if title == "" {
		title = document.DefaultTitle
	}

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: draftSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(draftInstructionFormat,
			title, excerpt, strings.TrimSpace(strings.Join(answers, "\n")))},
	}

	body, err := d.client.Complete(ctx, msgs, llm.Options{Temperature: llm.Temp(0.2)})
	if err != nil {
		return "", fmt.Errorf("draft report: %w", err)
	}
	return EnsureTitled(strings.TrimSpace(body), title), nil
}

// EnsureTitled wraps body in the required format when the model did not
// already lead with a bracketed title line.
func EnsureTitled(body, title string) string {
	firstLine := body
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		firstLine = body[:i]
	}
	if strings.HasPrefix(firstLine, "【") && strings.Contains(firstLine, "】") {
		return body
	}
	return fmt.Sprintf("【%s】\n\n%s", title, body)
}
