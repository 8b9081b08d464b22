package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenshulab/reportchat/internal/chat"
	"github.com/kenshulab/reportchat/internal/config"
	"github.com/kenshulab/reportchat/internal/llm"
	"github.com/kenshulab/reportchat/internal/question"
	"github.com/kenshulab/reportchat/internal/report"
	"github.com/kenshulab/reportchat/internal/session"
)

// fakeOpenAI emulates the chat completions endpoint, answering every
// request with reply. Streaming requests get the reply split into SSE
// delta chunks.
func fakeOpenAI(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode llm request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if !req.Stream {
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": reply}},
				},
			}
			json.NewEncoder(w).Encode(resp)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		runes := []rune(reply)
		mid := len(runes) / 2
		for _, delta := range []string{string(runes[:mid]), string(runes[mid:])} {
			payload, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{
					{"delta": map[string]string{"content": delta}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestServer(t *testing.T, cfg config.Config, llmReply string) (*Server, *session.Store) {
	t.Helper()

	backend := fakeOpenAI(t, llmReply)
	t.Cleanup(backend.Close)

	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.MaxQuestions == 0 {
		cfg.MaxQuestions = 10
	}
	if cfg.GeneratedQuestions == 0 {
		cfg.GeneratedQuestions = 3
	}
	if cfg.QuestionSource == "" {
		cfg.QuestionSource = config.QuestionSourceDocument
	}
	if cfg.ChatExcerptChars == 0 {
		cfg.ChatExcerptChars = 6000
	}
	if cfg.ReportExcerptChars == 0 {
		cfg.ReportExcerptChars = 3500
	}

	log := slog.New(slog.DiscardHandler)
	client := llm.NewOpenAIClient(backend.URL, "sk-test", "", "gpt-4o-mini", llm.NewStats(time.Hour))
	controller := chat.NewController(cfg, client, question.NewGenerator(client), report.NewDrafter(client, cfg.ReportExcerptChars), log)
	store := session.NewStore(time.Hour)
	return NewServer(store, controller, client, log, cfg), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadText(t *testing.T, srv *Server, sessionID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv *Server) session.Snapshot {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateSession_OpensWithGreeting(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, session.PhaseAwaitingDocument, snap.Phase)
	assert.Equal(t, config.QuestionSourceDocument, snap.QuestionSource)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, session.Greeting, snap.Transcript[0].Content)
}

func TestCreateSession_QuestionSourceOverride(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]string{"question_source": "llm"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, config.QuestionSourceLLM, snap.QuestionSource)

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]string{"question_source": "both"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteSession(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	rec := uploadText(t, srv, snap.ID, "研修.txt", "Q1. 感想は？\nQ2. 学びは？")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Title         string        `json:"title"`
		PageCount     int           `json:"page_count"`
		TextExtracted bool          `json:"text_extracted"`
		Phase         session.Phase `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "研修", resp.Title)
	assert.True(t, resp.TextExtracted)
	assert.Equal(t, session.PhaseAwaitingStart, resp.Phase)
}

func TestUploadDocument_UnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	rec := uploadText(t, srv, snap.ID, "macro.exe", "MZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{MaxUploadBytes: 64}, "")
	snap := createSession(t, srv)

	rec := uploadText(t, srv, snap.ID, "big.txt", strings.Repeat("a", 200))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadDocument_InvalidPDFStillAccepted(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	rec := uploadText(t, srv, snap.ID, "broken.pdf", "not really a pdf")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		TextExtracted bool `json:"text_extracted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.TextExtracted)
}

func TestChat_QuestionWalkTurn(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)
	uploadText(t, srv, snap.ID, "研修.txt", "Q1. 感想は？\nQ2. 学びは？")

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat", map[string]string{"message": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res chat.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "感想は？")
	assert.Equal(t, session.PhaseQuestionWalk, res.Phase)
	assert.Equal(t, 1, res.Cursor)
	assert.Equal(t, 2, res.QuestionTotal)
}

func TestChat_ValidatesInput(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "")
	snap := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat", map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/missing/chat", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_SSEStreamsFreeFormReply(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "いい質問ですね。")
	snap := createSession(t, srv)
	uploadText(t, srv, snap.ID, "研修.txt", "本文のみの資料")

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat?stream=sse", map[string]string{"message": "研修の目的は？"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"delta":`)
	assert.Contains(t, body, "event: done\n")
	assert.NotContains(t, body, "event: error\n")
}

func TestChat_LLMFailureIsBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	cfg := config.Config{
		MaxUploadBytes:     20971520,
		MaxQuestions:       10,
		GeneratedQuestions: 3,
		QuestionSource:     config.QuestionSourceDocument,
		ChatExcerptChars:   6000,
		ReportExcerptChars: 3500,
	}
	log := slog.New(slog.DiscardHandler)
	client := llm.NewOpenAIClient(backend.URL, "sk-test", "", "gpt-4o-mini", nil)
	controller := chat.NewController(cfg, client, question.NewGenerator(client), report.NewDrafter(client, cfg.ReportExcerptChars), log)
	srv := NewServer(session.NewStore(time.Hour), controller, client, log, cfg)

	snap := createSession(t, srv)
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat", map[string]string{"message": "自由入力です"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReport_DraftLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "研修で多くを学びました。")
	snap := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	uploadText(t, srv, snap.ID, "新人研修.txt", "研修の本文です")
	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat", map[string]string{"message": "できた"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ReportDraft string `json:"report_draft"`
		Title       string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ReportDraft, "【新人研修】"))
	assert.Equal(t, "新人研修", resp.Title)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{APIKey: "secret"}, "")

	// Health stays public.
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLLMStats(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, "了解です。")
	snap := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+snap.ID+"/chat", map[string]string{"message": "自由入力です"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/stats/llm", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Model string            `json:"model"`
		Stats llm.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, 1, resp.Stats.Count)
}
