// Package chat interprets user turns against session state: starting
// the question walk, advancing it, falling back to free-form dialogue,
// and triggering report drafting.
package chat

import (
	"context"
	"log/slog"

	"github.com/kenshulab/reportchat/internal/config"
	"github.com/kenshulab/reportchat/internal/document"
	"github.com/kenshulab/reportchat/internal/llm"
	"github.com/kenshulab/reportchat/internal/question"
	"github.com/kenshulab/reportchat/internal/report"
	"github.com/kenshulab/reportchat/internal/session"
)

// TurnResult is what one user turn produced.
type TurnResult struct {
	// Messages are the assistant messages emitted this turn, already
	// appended to the transcript, in emission order.
	Messages []string `json:"messages"`

	// ReportDraft is set when this turn (re)generated the report.
	// Drafts are stored on the session, not in the transcript.
	ReportDraft string `json:"report_draft,omitempty"`

	Phase         session.Phase `json:"phase"`
	Cursor        int           `json:"cursor"`
	QuestionTotal int           `json:"question_total"`
}

// turnState carries per-turn inputs through the transition handlers.
type turnState struct {
	input string

	// priorUserMessages counts user transcript entries that existed
	// before this turn's message was appended.
	priorUserMessages int

	// onChunk receives streamed free-form fragments; may be nil.
	onChunk func(string)
}

// handlerFunc runs one transition. fallThrough requests evaluation of
// the free-form edge in the same turn.
type handlerFunc func(ctx context.Context, sess *session.Session, t *turnState, res *TurnResult) (fallThrough bool, err error)

// transition is one row of the controller's dispatch table.
type transition struct {
	on       event
	anyPhase bool
	phase    session.Phase
	run      handlerFunc
}

// Controller drives the conversational state machine. LLM failures are
// never retried or suppressed here; they surface to the HTTP layer.
type Controller struct {
	cfg       config.Config
	llm       llm.Client
	generator *question.Generator
	drafter   *report.Drafter
	log       *slog.Logger

	table []transition
}

func NewController(cfg config.Config, client llm.Client, gen *question.Generator, drafter *report.Drafter, log *slog.Logger) *Controller {
	c := &Controller{
		cfg:       cfg,
		llm:       client,
		generator: gen,
		drafter:   drafter,
		log:       log,
	}
	// Evaluated top to bottom; the first matching row runs. The
	// question-walk row falls through to the free-form row once the
	// list is exhausted, so the exhaustion notice and the LLM reply
	// land in the same turn.
	c.table = []transition{
		{on: eventDone, anyPhase: true, run: c.handleDone},
		{on: eventStart, anyPhase: true, run: c.handleStart},
		{on: eventMessage, phase: session.PhaseQuestionWalk, run: c.handleAnswer},
		{on: eventMessage, anyPhase: true, run: c.handleFreeForm},
	}
	return c
}

// HandleTurn processes one user message. The message is appended to the
// transcript first; every emitted assistant message is appended before
// return.
func (c *Controller) HandleTurn(ctx context.Context, sess *session.Session, input string, onChunk func(string)) (*TurnResult, error) {
	t := &turnState{
		input:             input,
		priorUserMessages: sess.UserMessageCount(),
		onChunk:           onChunk,
	}
	sess.AppendMessage(llm.RoleUser, input)

	ev := classify(input)
	res := &TurnResult{}

	phase := sess.Snapshot().Phase
	for _, tr := range c.table {
		if tr.on != ev {
			continue
		}
		if !tr.anyPhase && tr.phase != phase {
			continue
		}

		fallThrough, err := tr.run(ctx, sess, t, res)
		if err != nil {
			return nil, err
		}
		if fallThrough {
			if _, err := c.handleFreeForm(ctx, sess, t, res); err != nil {
				return nil, err
			}
		}
		break
	}

	final := sess.Snapshot()
	res.Phase = final.Phase
	res.Cursor = final.Cursor
	res.QuestionTotal = len(final.Questions)
	return res, nil
}

func (c *Controller) emit(sess *session.Session, res *TurnResult, content string) {
	sess.AppendMessage(llm.RoleAssistant, content)
	res.Messages = append(res.Messages, content)
}

// handleDone drafts the report, unless nothing exists to draft from:
// no document text and no answer given before this turn.
func (c *Controller) handleDone(ctx context.Context, sess *session.Session, t *turnState, res *TurnResult) (bool, error) {
	snap := sess.Snapshot()
	if !snap.Document.HasText() && t.priorUserMessages == 0 {
		c.emit(sess, res, msgReportGuidance)
		return false, nil
	}

	draft, err := c.drafter.Draft(ctx, snap)
	if err != nil {
		return false, err
	}
	sess.SetReportDraft(draft)
	res.ReportDraft = draft
	c.log.Info("report drafted", "session_id", snap.ID, "chars", len([]rune(draft)))
	return false, nil
}

// handleStart populates the question list on first use and emits the
// next question. With no readable document it reminds the user to
// upload; with an empty question list it invites free-form reflection.
func (c *Controller) handleStart(ctx context.Context, sess *session.Session, t *turnState, res *TurnResult) (bool, error) {
	snap := sess.Snapshot()
	if !snap.Document.HasText() {
		c.emit(sess, res, msgUploadFirst)
		return false, nil
	}

	if len(snap.Questions) == 0 {
		qs, err := c.buildQuestions(ctx, snap)
		if err != nil {
			return false, err
		}
		sess.SetQuestions(qs)
		c.log.Info("questions ready",
			"session_id", snap.ID,
			"source", snap.QuestionSource,
			"count", len(qs),
		)
	}

	q, first, ok := sess.NextQuestion()
	if !ok {
		c.emit(sess, res, msgNoQuestions)
		sess.SetPhase(session.PhaseFreeForm)
		return false, nil
	}

	msg := q + questionSuffix
	if first {
		msg = walkIntro + msg
	}
	c.emit(sess, res, msg)
	sess.SetPhase(session.PhaseQuestionWalk)
	return false, nil
}

// buildQuestions runs exactly one strategy for the session: marker
// extraction from the document text, or LLM-generated prompts.
func (c *Controller) buildQuestions(ctx context.Context, snap session.Snapshot) ([]string, error) {
	if snap.QuestionSource == config.QuestionSourceLLM {
		return c.generator.Generate(ctx, snap.Document.Text, c.cfg.GeneratedQuestions)
	}
	return question.Extract(snap.Document.Text, c.cfg.MaxQuestions), nil
}

// handleAnswer treats the message as the answer to the previous
// question and emits the next one. Once the list is exhausted it emits
// the one-time notice, leaves the walk, and falls through to free-form.
func (c *Controller) handleAnswer(ctx context.Context, sess *session.Session, t *turnState, res *TurnResult) (bool, error) {
	q, _, ok := sess.NextQuestion()
	if ok {
		c.emit(sess, res, q+questionSuffix)
		return false, nil
	}

	c.emit(sess, res, msgWalkExhausted)
	sess.SetPhase(session.PhaseFreeForm)
	return true, nil
}

// handleFreeForm forwards the transcript plus a document-grounded
// system instruction to the LLM in streaming mode and appends the
// accumulated response. The session phase is left alone: free-form
// replies are legal from any phase, and only the exhausted question
// walk actually transitions into PhaseFreeForm.
func (c *Controller) handleFreeForm(ctx context.Context, sess *session.Session, t *turnState, res *TurnResult) (bool, error) {
	snap := sess.Snapshot()

	sysPrompt := freeFormSystemPrompt
	if snap.Document.HasText() {
		sysPrompt += "\n\n--- 参考ドキュメント抜粋 ---\n" +
			document.Excerpt(snap.Document.Text, c.cfg.ChatExcerptChars)
	}

	msgs := make([]llm.Message, 0, len(snap.Transcript)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: sysPrompt})
	msgs = append(msgs, snap.Transcript...)

	reply, err := c.llm.Stream(ctx, msgs, llm.Options{}, t.onChunk)
	if err != nil {
		return false, err
	}

	c.emit(sess, res, reply)
	return false, nil
}
