// Package memory provides the persisted record types and storage
// implementations for the assistant: an append-only memory log with
// lexical and vector search, plus dated reminders.
package memory

import (
	"strings"
	"time"
)

// Domain is the coarse privacy/topic partition of a memory.
type Domain string

const (
	DomainSensitive Domain = "sensitive"
	DomainWork      Domain = "work"
	DomainPersonal  Domain = "personal"
)

// Priority marks how urgently a memory should surface.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// RecordType distinguishes plain memories from tasks and saved links.
type RecordType string

const (
	TypeMemory RecordType = "memory"
	TypeTask   RecordType = "task"
	TypeLink   RecordType = "link"
)

// Closed category taxonomy. CategoryGeneral is the fallback when no rule
// or heuristic fires.
const (
	CategoryHighPriority   = "high_priority"
	CategoryPersonalSecure = "personal_secure"
	CategoryWork           = "work"
	CategoryReminder       = "reminder"
	CategoryLink           = "link"
	CategoryGeneral        = "general"
)

// Memory is one persisted fact/note record. Records are append-only:
// a correction is a new record with IsOverride set, never an edit.
type Memory struct {
	ID                int64
	Owner             string
	Content           string
	NormalizedContent string
	Category          string
	Domain            Domain
	Priority          Priority
	RecordType        RecordType
	Embedding         []float32 // nil when the embedding capability was unavailable
	Similarity        float32   // populated by similarity search results only
	CreatedAt         time.Time
	CreatedAtHuman    string
	IsOverride        bool
	Links             []string
}

// Reminder is a dated obligation, separate from general memories.
type Reminder struct {
	ID        int64
	Owner     string
	Title     string
	DueDate   time.Time // date only, midnight UTC
	Completed bool
	CreatedAt time.Time
}

// Normalize lowercases text and collapses runs of whitespace to single
// spaces. NormalizedContent is derived with it once at creation and never
// recomputed.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
