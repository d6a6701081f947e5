package memory

import (
	"context"
	"time"
)

// Store defines the contract for memory and reminder persistence.
// Both operations' result sets are finite snapshots; a fresh call
// re-executes the full query.
type Store interface {
	// InsertMemory appends a memory record. Records are never updated
	// in place.
	InsertMemory(ctx context.Context, m *Memory) error

	// SearchMemories returns the owner's records whose normalized content
	// contains every keyword as a substring, newest first, truncated to
	// limit. An empty keyword list yields an empty result.
	SearchMemories(ctx context.Context, owner string, keywords []string, limit int) ([]Memory, error)

	// SimilaritySearch returns the owner's records whose cosine similarity
	// to query meets or exceeds threshold, most similar first, at most
	// limit records. Each result carries its Similarity score.
	SimilaritySearch(ctx context.Context, owner string, query []float32, threshold float32, limit int) ([]Memory, error)

	// InsertReminder appends a reminder.
	InsertReminder(ctx context.Context, r *Reminder) error

	// ListOpenReminders returns the owner's uncompleted reminders due on
	// or after today, ascending by due date.
	ListOpenReminders(ctx context.Context, owner string, today time.Time) ([]Reminder, error)

	// Close releases any resources held by the store.
	Close() error
}
