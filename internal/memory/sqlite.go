package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed-width layout so lexicographic ORDER BY on the TEXT column matches
// chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements Store on a single SQLite file. Vector similarity
// search loads the owner's embeddings and scores them in application
// memory with cosine similarity, which is fine for a single user's
// message history (well under 10K records).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path (":memory:" works for tests)
// and verifies connectivity with a ping.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: SQLite has one writer anyway, and it keeps
	// ":memory:" databases coherent across queries.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the tables if they don't exist. Call once after
// NewSQLiteStore.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			content TEXT NOT NULL,
			normalized_content TEXT NOT NULL,
			category TEXT NOT NULL,
			domain TEXT NOT NULL,
			priority TEXT NOT NULL,
			record_type TEXT NOT NULL,
			embedding BLOB,
			created_at TEXT NOT NULL,
			created_at_human TEXT NOT NULL,
			is_override INTEGER NOT NULL DEFAULT 0,
			links TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_memories_owner_created ON memories(owner, created_at DESC);

		CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			title TEXT NOT NULL,
			due_date TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reminders_owner_due ON reminders(owner, due_date);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// InsertMemory appends a memory record.
func (s *SQLiteStore) InsertMemory(ctx context.Context, m *Memory) error {
	links, err := encodeLinks(m.Links)
	if err != nil {
		return fmt.Errorf("failed to encode links: %w", err)
	}

	query := `
		INSERT INTO memories (owner, content, normalized_content, category, domain, priority,
		                      record_type, embedding, created_at, created_at_human, is_override, links)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		m.Owner, m.Content, m.NormalizedContent, m.Category, string(m.Domain), string(m.Priority),
		string(m.RecordType), encodeVector(m.Embedding), m.CreatedAt.UTC().Format(sqliteTimeLayout),
		m.CreatedAtHuman, boolToInt(m.IsOverride), links,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		m.ID = id
	}
	return nil
}

// SearchMemories performs the conjunctive lexical filter: every keyword
// must occur as a substring of normalized_content.
func (s *SQLiteStore) SearchMemories(ctx context.Context, owner string, keywords []string, limit int) ([]Memory, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	where := []string{"owner = ?"}
	args := []any{owner}
	for _, kw := range keywords {
		where = append(where, "normalized_content LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, owner, content, normalized_content, category, domain, priority,
		       record_type, embedding, created_at, created_at_human, is_override, links
		FROM memories
		WHERE %s
		ORDER BY created_at DESC
		LIMIT ?`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}
	return out, nil
}

type memoryWithScore struct {
	Memory
	score float32
}

// SimilaritySearch loads the owner's embedded records and ranks them by
// cosine similarity in the application layer, keeping those at or above
// threshold.
func (s *SQLiteStore) SimilaritySearch(ctx context.Context, owner string, query []float32, threshold float32, limit int) ([]Memory, error) {
	sqlQuery := `
		SELECT id, owner, content, normalized_content, category, domain, priority,
		       record_type, embedding, created_at, created_at_human, is_override, links
		FROM memories
		WHERE owner = ? AND embedding IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, sqlQuery, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var scored []memoryWithScore
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if len(m.Embedding) == 0 || len(m.Embedding) != len(query) {
			continue
		}
		sim := cosineSimilarity(query, m.Embedding)
		if sim >= threshold {
			m.Similarity = sim
			scored = append(scored, memoryWithScore{Memory: m, score: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	topK := min(limit, len(scored))
	out := make([]Memory, topK)
	for i := range topK {
		out[i] = scored[i].Memory
	}
	return out, nil
}

// InsertReminder appends a reminder.
func (s *SQLiteStore) InsertReminder(ctx context.Context, r *Reminder) error {
	query := `
		INSERT INTO reminders (owner, title, due_date, completed, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		r.Owner, r.Title, r.DueDate.UTC().Format("2006-01-02"), boolToInt(r.Completed),
		r.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// ListOpenReminders returns uncompleted reminders due today or later,
// soonest first.
func (s *SQLiteStore) ListOpenReminders(ctx context.Context, owner string, today time.Time) ([]Reminder, error) {
	query := `
		SELECT id, owner, title, due_date, completed, created_at
		FROM reminders
		WHERE owner = ? AND completed = 0 AND due_date >= ?
		ORDER BY due_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, owner, today.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var due, created string
		var completed int
		if err := rows.Scan(&r.ID, &r.Owner, &r.Title, &due, &completed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.DueDate, _ = time.Parse("2006-01-02", due)
		r.CreatedAt, _ = parseTimestamp(created)
		r.Completed = completed != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return out, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMemory(rows *sql.Rows) (Memory, error) {
	var m Memory
	var embedding []byte
	var created string
	var override int
	var links sql.NullString
	err := rows.Scan(
		&m.ID, &m.Owner, &m.Content, &m.NormalizedContent, &m.Category,
		&m.Domain, &m.Priority, &m.RecordType, &embedding,
		&created, &m.CreatedAtHuman, &override, &links,
	)
	if err != nil {
		return Memory{}, fmt.Errorf("failed to scan memory: %w", err)
	}
	m.Embedding = decodeVector(embedding)
	m.CreatedAt, _ = parseTimestamp(created)
	m.IsOverride = override != 0
	if links.Valid && links.String != "" {
		_ = json.Unmarshal([]byte(links.String), &m.Links)
	}
	return m, nil
}

func encodeLinks(links []string) (sql.NullString, error) {
	if len(links) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeVector converts a float32 slice to a byte slice for storage.
// Each float32 is encoded as 4 bytes in little-endian format.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a byte slice back to a float32 slice.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// The result is in range [-1, 1]. For normalized embedding vectors this is
// equivalent to dot product.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// parseTimestamp parses a stored timestamp string back to time.Time.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		sqliteTimeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

var _ Store = (*SQLiteStore)(nil)
