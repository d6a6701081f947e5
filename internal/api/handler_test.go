package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remembot/remembot/internal/assistant"
	"github.com/remembot/remembot/internal/categorize"
	"github.com/remembot/remembot/internal/intent"
	"github.com/remembot/remembot/internal/memory"
	"github.com/remembot/remembot/internal/recall"
	"github.com/remembot/remembot/internal/rules"
	"github.com/remembot/remembot/internal/telegram"
)

type stubStore struct {
	inserted []*memory.Memory
}

func (s *stubStore) InsertMemory(ctx context.Context, m *memory.Memory) error {
	s.inserted = append(s.inserted, m)
	return nil
}

func (s *stubStore) SearchMemories(ctx context.Context, owner string, keywords []string, limit int) ([]memory.Memory, error) {
	return nil, nil
}

func (s *stubStore) SimilaritySearch(ctx context.Context, owner string, query []float32, threshold float32, limit int) ([]memory.Memory, error) {
	return nil, nil
}

func (s *stubStore) InsertReminder(ctx context.Context, r *memory.Reminder) error { return nil }

func (s *stubStore) ListOpenReminders(ctx context.Context, owner string, today time.Time) ([]memory.Reminder, error) {
	return nil, nil
}

func (s *stubStore) Close() error { return nil }

type recordingSender struct {
	chatID int64
	text   string
	calls  int
}

func (r *recordingSender) Send(ctx context.Context, chatID int64, text string) error {
	r.calls++
	r.chatID = chatID
	r.text = text
	return nil
}

func newTestHandler(store *stubStore, sender telegram.Sender) http.Handler {
	a := assistant.New(assistant.Config{
		Store:       store,
		Engine:      recall.NewEngine(store, nil, 0, 0, zerolog.Nop()),
		Classifier:  intent.NewClassifier(rules.Empty(), 0),
		Categorizer: categorize.New(rules.Empty()),
		Logger:      zerolog.Nop(),
	})
	return NewRouter(NewHandler(a, sender, zerolog.Nop()))
}

func postWebhook(t *testing.T, h http.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookStoresAndReplies(t *testing.T) {
	store := &stubStore{}
	sender := &recordingSender{}
	h := newTestHandler(store, sender)

	upd := telegram.Update{Message: &telegram.Message{
		Chat: &telegram.Chat{ID: 42},
		Text: "I went to the dentist yesterday",
	}}
	body, err := json.Marshal(upd)
	require.NoError(t, err)

	rec := postWebhook(t, h, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "42", store.inserted[0].Owner)
	require.Equal(t, 1, sender.calls)
	assert.Equal(t, int64(42), sender.chatID)
	assert.Equal(t, "Noted.", sender.text)
}

func TestWebhookAcksMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"undecodable body", `{"update_id": `},
		{"no message", `{"update_id": 1}`},
		{"no chat", `{"message": {"text": "hello"}}`},
		{"zero chat id", `{"message": {"chat": {"id": 0}, "text": "hello"}}`},
		{"blank text", `{"message": {"chat": {"id": 42}, "text": "   "}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			sender := &recordingSender{}
			h := newTestHandler(store, sender)

			rec := postWebhook(t, h, []byte(tt.body))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
			assert.Empty(t, store.inserted)
			assert.Zero(t, sender.calls)
		})
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	h := newTestHandler(&stubStore{}, &recordingSender{})
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubStore{}, &recordingSender{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
