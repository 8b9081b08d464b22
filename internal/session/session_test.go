package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenshulab/reportchat/internal/document"
	"github.com/kenshulab/reportchat/internal/llm"
)

func TestNew_StartsWithGreeting(t *testing.T) {
	s := New("s1", "document")

	snap := s.Snapshot()
	assert.Equal(t, PhaseAwaitingDocument, snap.Phase)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, llm.RoleAssistant, snap.Transcript[0].Role)
	assert.Equal(t, Greeting, snap.Transcript[0].Content)
}

func TestNextQuestion_CursorNeverExceedsLen(t *testing.T) {
	s := New("s1", "document")
	s.SetQuestions([]string{"q1", "q2"})

	q, first, ok := s.NextQuestion()
	require.True(t, ok)
	assert.True(t, first)
	assert.Equal(t, "q1", q)

	q, first, ok = s.NextQuestion()
	require.True(t, ok)
	assert.False(t, first)
	assert.Equal(t, "q2", q)

	_, _, ok = s.NextQuestion()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Snapshot().Cursor)

	// Repeated exhausted calls must not move the cursor.
	_, _, ok = s.NextQuestion()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Snapshot().Cursor)
}

func TestSetDocument_ResetsDerivedStateKeepsTranscript(t *testing.T) {
	s := New("s1", "document")
	s.AppendMessage(llm.RoleUser, "ok")
	s.SetQuestions([]string{"q1"})
	s.NextQuestion()
	s.SetPhase(PhaseQuestionWalk)
	s.SetReportDraft("【研修レポート】\n\n本文")

	s.SetDocument(document.Document{Text: "新しい本文", PageCount: 3, Title: "新資料"})

	snap := s.Snapshot()
	assert.Empty(t, snap.Questions)
	assert.Zero(t, snap.Cursor)
	assert.Empty(t, snap.ReportDraft)
	assert.Equal(t, PhaseAwaitingStart, snap.Phase)
	assert.Equal(t, "新資料", snap.Document.Title)
	// Transcript survives re-upload.
	assert.Len(t, snap.Transcript, 2)
}

func TestSetQuestions_RewindsCursor(t *testing.T) {
	s := New("s1", "document")
	s.SetQuestions([]string{"q1", "q2"})
	s.NextQuestion()
	s.NextQuestion()

	s.SetQuestions([]string{"n1"})
	snap := s.Snapshot()
	assert.Zero(t, snap.Cursor)
	assert.Equal(t, []string{"n1"}, snap.Questions)
}

func TestUserMessageCount(t *testing.T) {
	s := New("s1", "document")
	assert.Zero(t, s.UserMessageCount())

	s.AppendMessage(llm.RoleUser, "こんにちは")
	s.AppendMessage(llm.RoleAssistant, "はい")
	s.AppendMessage(llm.RoleUser, "ok")
	assert.Equal(t, 2, s.UserMessageCount())
}

func TestSnapshot_IsolatedFromLaterMutation(t *testing.T) {
	s := New("s1", "document")
	s.SetQuestions([]string{"q1"})
	snap := s.Snapshot()

	s.SetQuestions([]string{"changed"})
	s.AppendMessage(llm.RoleUser, "later")

	assert.Equal(t, []string{"q1"}, snap.Questions)
	assert.Len(t, snap.Transcript, 1)
}
