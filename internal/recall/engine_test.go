package recall

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/remembot/remembot/internal/memory"
)

// mockStore records the arguments of the last search calls.
type mockStore struct {
	searchKeywords []string
	searchLimit    int
	searchCalls    int
	searchResults  []memory.Memory
	searchErr      error

	simVector    []float32
	simThreshold float32
	simLimit     int
	simCalls     int
	simResults   []memory.Memory
	simErr       error
}

func (m *mockStore) InsertMemory(ctx context.Context, mem *memory.Memory) error { return nil }

func (m *mockStore) SearchMemories(ctx context.Context, owner string, keywords []string, limit int) ([]memory.Memory, error) {
	m.searchCalls++
	m.searchKeywords = keywords
	m.searchLimit = limit
	return m.searchResults, m.searchErr
}

func (m *mockStore) SimilaritySearch(ctx context.Context, owner string, query []float32, threshold float32, limit int) ([]memory.Memory, error) {
	m.simCalls++
	m.simVector = query
	m.simThreshold = threshold
	m.simLimit = limit
	return m.simResults, m.simErr
}

func (m *mockStore) InsertReminder(ctx context.Context, r *memory.Reminder) error { return nil }

func (m *mockStore) ListOpenReminders(ctx context.Context, owner string, today time.Time) ([]memory.Reminder, error) {
	return nil, nil
}

func (m *mockStore) Close() error { return nil }

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	return m.vector, m.err
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"When did I go to the dentist?", []string{"dentist"}},
		{"Tell me about my insurance premium", []string{"insurance", "premium"}},
		{"tell me about my", nil},
		{"When did I have any meetings", []string{"meetings"}},
		{"  DENTIST   visit  ", []string{"dentist", "visit"}},
	}
	for _, tt := range tests {
		got := ExtractKeywords(tt.text)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractKeywords(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestLexicalRecall(t *testing.T) {
	ctx := context.Background()

	t.Run("passes keywords and default limit", func(t *testing.T) {
		store := &mockStore{searchResults: []memory.Memory{{Content: "dentist on monday"}}}
		e := NewEngine(store, nil, 0, 0, zerolog.Nop())

		got, err := e.Recall(ctx, "42", "When did I go to the dentist?", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d results, want 1", len(got))
		}
		if !reflect.DeepEqual(store.searchKeywords, []string{"dentist"}) {
			t.Errorf("keywords = %v, want [dentist]", store.searchKeywords)
		}
		if store.searchLimit != DefaultLimit {
			t.Errorf("limit = %d, want %d", store.searchLimit, DefaultLimit)
		}
	})

	t.Run("explicit limit overrides default", func(t *testing.T) {
		store := &mockStore{}
		e := NewEngine(store, nil, 0, 0, zerolog.Nop())

		if _, err := e.Recall(ctx, "42", "last 3 dentist visits", 3); err != nil {
			t.Fatal(err)
		}
		if store.searchLimit != 3 {
			t.Errorf("limit = %d, want 3", store.searchLimit)
		}
	})

	t.Run("stopword-only query returns empty without a store call", func(t *testing.T) {
		store := &mockStore{}
		e := NewEngine(store, nil, 0, 0, zerolog.Nop())

		got, err := e.Recall(ctx, "42", "tell me about my", 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("got %v, want nil", got)
		}
		if store.searchCalls != 0 {
			t.Errorf("store called %d times, want 0", store.searchCalls)
		}
	})

	t.Run("store failure reports ErrSearchUnavailable", func(t *testing.T) {
		store := &mockStore{searchErr: errors.New("connection refused")}
		e := NewEngine(store, nil, 0, 0, zerolog.Nop())

		_, err := e.Recall(ctx, "42", "dentist visit", 0)
		if !errors.Is(err, ErrSearchUnavailable) {
			t.Errorf("err = %v, want ErrSearchUnavailable", err)
		}
	})
}

func TestSemanticRecall(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds the query and applies the threshold", func(t *testing.T) {
		store := &mockStore{simResults: []memory.Memory{{Content: "dentist", Similarity: 0.9}}}
		emb := &mockEmbedder{vector: []float32{0.1, 0.2}}
		e := NewEngine(store, emb, 0, 0, zerolog.Nop())

		got, err := e.Recall(ctx, "42", "when was my dentist visit", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Similarity != 0.9 {
			t.Fatalf("got %v, want the similarity result", got)
		}
		if emb.calls != 1 {
			t.Errorf("embedder called %d times, want 1", emb.calls)
		}
		if !reflect.DeepEqual(store.simVector, emb.vector) {
			t.Errorf("vector = %v, want %v", store.simVector, emb.vector)
		}
		if store.simThreshold != DefaultThreshold {
			t.Errorf("threshold = %v, want %v", store.simThreshold, DefaultThreshold)
		}
		if store.simLimit != DefaultLimit {
			t.Errorf("limit = %d, want %d", store.simLimit, DefaultLimit)
		}
		if store.searchCalls != 0 {
			t.Errorf("lexical search called %d times, want 0", store.searchCalls)
		}
	})

	t.Run("embedding failure reports ErrSearchUnavailable", func(t *testing.T) {
		store := &mockStore{}
		emb := &mockEmbedder{err: errors.New("quota exceeded")}
		e := NewEngine(store, emb, 0, 0, zerolog.Nop())

		_, err := e.Recall(ctx, "42", "dentist visit", 0)
		if !errors.Is(err, ErrSearchUnavailable) {
			t.Errorf("err = %v, want ErrSearchUnavailable", err)
		}
		if store.simCalls != 0 {
			t.Errorf("similarity search called %d times, want 0", store.simCalls)
		}
	})

	t.Run("custom threshold is forwarded", func(t *testing.T) {
		store := &mockStore{}
		emb := &mockEmbedder{vector: []float32{1}}
		e := NewEngine(store, emb, 0.7, 6, zerolog.Nop())

		if _, err := e.Recall(ctx, "42", "dentist visit", 0); err != nil {
			t.Fatal(err)
		}
		if store.simThreshold != 0.7 {
			t.Errorf("threshold = %v, want 0.7", store.simThreshold)
		}
		if store.simLimit != 6 {
			t.Errorf("limit = %d, want 6", store.simLimit)
		}
	})
}
