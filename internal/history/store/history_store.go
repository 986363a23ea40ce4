package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
)

// Mode is the REPL mode a line was processed in
type Mode string

const (
	ModeParse Mode = "parse"
	ModeEval  Mode = "eval"
)

// Entry represents a single processed input line
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Input     string    `json:"input"`
	Mode      Mode      `json:"mode"`
	Output    string    `json:"output,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// Failed reports whether the line was rejected
func (e *Entry) Failed() bool {
	return e.ErrorCode != ""
}

// Filter defines criteria for filtering entries
type Filter struct {
	SessionID  string
	Mode       Mode
	ErrorsOnly bool
	Contains   string
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}

// SessionSummary aggregates the entries of one session
type SessionSummary struct {
	ID      string    `json:"id"`
	Entries int64     `json:"entries"`
	Errors  int64     `json:"errors"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Stats holds store-wide counters
type Stats struct {
	TotalEntries int64            `json:"total_entries"`
	Sessions     int64            `json:"sessions"`
	ByMode       map[string]int64 `json:"by_mode"`
	ByErrorCode  map[string]int64 `json:"by_error_code"`
}

// Store defines the interface for history persistence
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]*Entry, error)
	Sessions(ctx context.Context) ([]*SessionSummary, error)
	Stats(ctx context.Context) (*Stats, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// DefaultConfig returns default configuration
func DefaultConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/history.db",
	}
}

// NewSQLiteStore creates a new SQLite-based history store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dbError(err, "failed to create directory").WithDetail("path", dir)
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError(err, "failed to open database").WithDetail("path", cfg.Path)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError(err, "failed to initialize schema")
	}

	return store, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		input TEXT NOT NULL,
		mode TEXT NOT NULL,
		output TEXT,
		error_code TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_entries_error_code ON entries(error_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores a processed line. ID and timestamp are filled in if empty.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(entry)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, session_id, timestamp, input, mode, output, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.SessionID, entry.Timestamp, entry.Input, string(entry.Mode), entry.Output, entry.ErrorCode)
	if err != nil {
		return dbError(err, "failed to insert history entry").WithDetail("id", entry.ID)
	}

	return nil
}

// Query retrieves entries based on filter criteria, newest first
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, session_id, timestamp, input, mode, output, error_code FROM entries WHERE 1=1`
	var args []interface{}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.Mode != "" {
		query += " AND mode = ?"
		args = append(args, string(filter.Mode))
	}
	if filter.ErrorsOnly {
		query += " AND error_code IS NOT NULL AND error_code != ''"
	}
	if filter.Contains != "" {
		query += " AND instr(input, ?) > 0"
		args = append(args, filter.Contains)
	}
	if !filter.StartTime.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime.UTC())
	}
	if !filter.EndTime.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime.UTC())
	}

	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query history")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var mode string
		var output, errorCode sql.NullString

		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Timestamp, &entry.Input,
			&mode, &output, &errorCode); err != nil {
			return nil, dbError(err, "failed to scan history entry")
		}

		entry.Mode = Mode(mode)
		entry.Output = output.String
		entry.ErrorCode = errorCode.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to read history")
	}

	return entries, nil
}

// Sessions returns one summary per session, most recently active first
func (s *SQLiteStore) Sessions(ctx context.Context) ([]*SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id,
		       COUNT(*),
		       SUM(CASE WHEN error_code IS NOT NULL AND error_code != '' THEN 1 ELSE 0 END),
		       MIN(timestamp),
		       MAX(timestamp)
		FROM entries
		GROUP BY session_id
		ORDER BY MAX(timestamp) DESC
	`)
	if err != nil {
		return nil, dbError(err, "failed to query sessions")
	}
	defer rows.Close()

	var sessions []*SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var first, last string

		if err := rows.Scan(&summary.ID, &summary.Entries, &summary.Errors, &first, &last); err != nil {
			return nil, dbError(err, "failed to scan session")
		}

		summary.First = parseTimestamp(first)
		summary.Last = parseTimestamp(last)
		sessions = append(sessions, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to read sessions")
	}

	return sessions, nil
}

// Stats returns store-wide counters
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByMode:      make(map[string]int64),
		ByErrorCode: make(map[string]int64),
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id) FROM entries`,
	).Scan(&stats.TotalEntries, &stats.Sessions); err != nil {
		return nil, dbError(err, "failed to count entries")
	}

	if err := s.countInto(ctx, `SELECT mode, COUNT(*) FROM entries GROUP BY mode`, stats.ByMode); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, `
		SELECT error_code, COUNT(*) FROM entries
		WHERE error_code IS NOT NULL AND error_code != ''
		GROUP BY error_code
	`, stats.ByErrorCode); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *SQLiteStore) countInto(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return dbError(err, "failed to aggregate entries")
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return dbError(err, "failed to scan aggregate")
		}
		into[key] = count
	}
	return rows.Err()
}

// Vacuum optimizes the database
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return dbError(err, "failed to vacuum database")
	}
	return nil
}

// Prune removes entries older than the specified duration
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, dbError(err, "failed to prune history")
	}
	deleted, _ := result.RowsAffected()

	return deleted, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-memory implementation for testing and for REPL
// sessions with persistence disabled
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryStore creates a new in-memory history store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make([]*Entry, 0)}
}

// Record stores a processed line
func (s *MemoryStore) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(entry)
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

// Query retrieves entries based on filter criteria, newest first
func (s *MemoryStore) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if !filter.matches(entry) {
			continue
		}
		copied := *entry
		results = append(results, &copied)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}

	return results, nil
}

// Sessions returns one summary per session, most recently active first
func (s *MemoryStore) Sessions(ctx context.Context) ([]*SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]*SessionSummary)
	for _, entry := range s.entries {
		summary, ok := byID[entry.SessionID]
		if !ok {
			summary = &SessionSummary{ID: entry.SessionID, First: entry.Timestamp, Last: entry.Timestamp}
			byID[entry.SessionID] = summary
		}
		summary.Entries++
		if entry.Failed() {
			summary.Errors++
		}
		if entry.Timestamp.Before(summary.First) {
			summary.First = entry.Timestamp
		}
		if entry.Timestamp.After(summary.Last) {
			summary.Last = entry.Timestamp
		}
	}

	sessions := make([]*SessionSummary, 0, len(byID))
	for _, summary := range byID {
		sessions = append(sessions, summary)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Last.After(sessions[j].Last)
	})

	return sessions, nil
}

// Stats returns store-wide counters
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalEntries: int64(len(s.entries)),
		ByMode:       make(map[string]int64),
		ByErrorCode:  make(map[string]int64),
	}

	sessions := make(map[string]struct{})
	for _, entry := range s.entries {
		sessions[entry.SessionID] = struct{}{}
		stats.ByMode[string(entry.Mode)]++
		if entry.Failed() {
			stats.ByErrorCode[entry.ErrorCode]++
		}
	}
	stats.Sessions = int64(len(sessions))

	return stats, nil
}

// Prune removes entries older than the specified duration
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	kept := s.entries[:0]
	var deleted int64
	for _, entry := range s.entries {
		if entry.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept

	return deleted, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (f Filter) matches(entry *Entry) bool {
	if f.SessionID != "" && entry.SessionID != f.SessionID {
		return false
	}
	if f.Mode != "" && entry.Mode != f.Mode {
		return false
	}
	if f.ErrorsOnly && !entry.Failed() {
		return false
	}
	if f.Contains != "" && !strings.Contains(entry.Input, f.Contains) {
		return false
	}
	if !f.StartTime.IsZero() && entry.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && entry.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}

func prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	if entry.Mode == "" {
		entry.Mode = ModeParse
	}
}

// parseTimestamp parses the text form go-sqlite3 writes for time values.
// Aggregates lose the column type, so they come back as strings.
func parseTimestamp(value string) time.Time {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func dbError(err error, message string) *mdwerror.Error {
	return mdwerror.Wrap(err, message).WithCode(mdwerror.CodeDatabaseError)
}
