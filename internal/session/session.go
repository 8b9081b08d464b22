package session

import (
	"sync"
	"time"

	"github.com/kenshulab/reportchat/internal/document"
	"github.com/kenshulab/reportchat/internal/llm"
)

// Phase is the conversational state of a session.
type Phase string

const (
	PhaseAwaitingDocument Phase = "awaiting_document"
	PhaseAwaitingStart    Phase = "awaiting_start"
	PhaseQuestionWalk     Phase = "question_walk"
	PhaseFreeForm         Phase = "free_form"
)

// Greeting opens every new session.
const Greeting = "💬 研修お疲れさまでした！\n" +
	"まずは研修ドキュメント（PDF）をアップロードしてください。\n" +
	"アップできたら **ok** とだけ送ってください。"

// Session holds one user's conversation state: the uploaded document,
// the question list with a cursor into it, and the chat transcript.
// Cursor is the index of the next question to emit; it never decreases
// except when the question list itself is replaced, and it never
// exceeds len(Questions).
type Session struct {
	mu sync.Mutex

	ID             string
	Phase          Phase
	Document       document.Document
	Questions      []string
	Cursor         int
	Transcript     []llm.Message
	ReportDraft    string
	QuestionSource string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a session opening with the fixed greeting.
func New(id, questionSource string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		Phase:          PhaseAwaitingDocument,
		QuestionSource: questionSource,
		Transcript: []llm.Message{
			{Role: llm.RoleAssistant, Content: Greeting},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds a transcript entry.
func (s *Session) AppendMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transcript = append(s.Transcript, llm.Message{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// SetDocument installs a freshly uploaded document. All state derived
// from the previous document (questions, cursor, report draft) resets;
// the transcript is preserved.
func (s *Session) SetDocument(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Document = doc
	s.Questions = nil
	s.Cursor = 0
	s.ReportDraft = ""
	s.Phase = PhaseAwaitingStart
	s.UpdatedAt = time.Now()
}

// SetQuestions replaces the question list and rewinds the cursor.
func (s *Session) SetQuestions(qs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Questions = qs
	s.Cursor = 0
	s.UpdatedAt = time.Now()
}

// NextQuestion returns the question under the cursor and advances it.
// ok is false once the list is exhausted; the cursor stays at
// len(Questions) in that case.
func (s *Session) NextQuestion() (q string, first bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Cursor >= len(s.Questions) {
		return "", false, false
	}
	q = s.Questions[s.Cursor]
	first = s.Cursor == 0
	s.Cursor++
	s.UpdatedAt = time.Now()
	return q, first, true
}

// SetPhase moves the session to a new conversational phase.
func (s *Session) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = p
	s.UpdatedAt = time.Now()
}

// SetReportDraft overwrites the stored draft. Drafts are regenerable;
// only the most recent one is kept.
func (s *Session) SetReportDraft(draft string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReportDraft = draft
	s.UpdatedAt = time.Now()
}

// UserMessageCount counts transcript entries with the user role.
func (s *Session) UserMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.Transcript {
		if m.Role == llm.RoleUser {
			n++
		}
	}
	return n
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID             string            `json:"session_id"`
	Phase          Phase             `json:"phase"`
	Document       document.Document `json:"document"`
	Questions      []string          `json:"questions"`
	Cursor         int               `json:"cursor"`
	Transcript     []llm.Message     `json:"transcript"`
	ReportDraft    string            `json:"report_draft,omitempty"`
	QuestionSource string            `json:"question_source"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Snapshot returns a copy of the session state safe to serialize and
// read outside the lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]string, len(s.Questions))
	copy(questions, s.Questions)
	transcript := make([]llm.Message, len(s.Transcript))
	copy(transcript, s.Transcript)

	return Snapshot{
		ID:             s.ID,
		Phase:          s.Phase,
		Document:       s.Document,
		Questions:      questions,
		Cursor:         s.Cursor,
		Transcript:     transcript,
		ReportDraft:    s.ReportDraft,
		QuestionSource: s.QuestionSource,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
