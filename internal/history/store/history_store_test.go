package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// storeFactories runs every test against both implementations
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "nested", "history.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func seed(t *testing.T, s Store, base time.Time) {
	t.Helper()
	ctx := context.Background()

	entries := []*Entry{
		{SessionID: "s1", Timestamp: base, Input: "1 + 2", Mode: ModeParse, Output: "(1 + 2)"},
		{SessionID: "s1", Timestamp: base.Add(time.Second), Input: "a = 3", Mode: ModeEval, Output: "3"},
		{SessionID: "s1", Timestamp: base.Add(2 * time.Second), Input: "1 +", Mode: ModeParse, ErrorCode: "PARSE_UNEXPECTED_END_OF_INPUT"},
		{SessionID: "s2", Timestamp: base.Add(3 * time.Second), Input: "b / 0", Mode: ModeEval, ErrorCode: "EVAL_UNDEFINED_VARIABLE"},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" {
			t.Fatal("Record() did not assign an ID")
		}
	}
}

func TestStore_Query(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)

	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s, base)
			ctx := context.Background()

			tests := []struct {
				name   string
				filter Filter
				inputs []string
			}{
				{"all newest first", Filter{}, []string{"b / 0", "1 +", "a = 3", "1 + 2"}},
				{"session", Filter{SessionID: "s1"}, []string{"1 +", "a = 3", "1 + 2"}},
				{"mode", Filter{Mode: ModeEval}, []string{"b / 0", "a = 3"}},
				{"errors only", Filter{ErrorsOnly: true}, []string{"b / 0", "1 +"}},
				{"contains", Filter{Contains: "+"}, []string{"1 +", "1 + 2"}},
				{"limit", Filter{Limit: 1}, []string{"b / 0"}},
				{"offset", Filter{Offset: 3}, []string{"1 + 2"}},
				{"start time", Filter{StartTime: base.Add(2 * time.Second)}, []string{"b / 0", "1 +"}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					entries, err := s.Query(ctx, tt.filter)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					var got []string
					for _, e := range entries {
						got = append(got, e.Input)
					}
					if len(got) != len(tt.inputs) {
						t.Fatalf("Query() = %q, want %q", got, tt.inputs)
					}
					for i := range got {
						if got[i] != tt.inputs[i] {
							t.Errorf("Query()[%d] = %q, want %q", i, got[i], tt.inputs[i])
						}
					}
				})
			}
		})
	}
}

func TestStore_RoundTripFields(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := &Entry{
				SessionID: "abc",
				Input:     "x = 1",
				Mode:      ModeEval,
				Output:    "1",
			}
			if err := s.Record(ctx, in); err != nil {
				t.Fatalf("Record() error = %v", err)
			}

			entries, err := s.Query(ctx, Filter{SessionID: "abc"})
			if err != nil || len(entries) != 1 {
				t.Fatalf("Query() = %v, %v", entries, err)
			}
			got := entries[0]
			if got.ID != in.ID || got.Input != in.Input || got.Mode != in.Mode || got.Output != in.Output {
				t.Errorf("entry = %+v, want %+v", got, in)
			}
			if !got.Timestamp.Equal(in.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, in.Timestamp)
			}
			if got.Failed() {
				t.Error("Failed() = true for entry without error code")
			}
		})
	}
}

func TestStore_SessionsAndStats(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)

	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s, base)
			ctx := context.Background()

			sessions, err := s.Sessions(ctx)
			if err != nil {
				t.Fatalf("Sessions() error = %v", err)
			}
			if len(sessions) != 2 {
				t.Fatalf("Sessions() returned %d sessions, want 2", len(sessions))
			}
			if sessions[0].ID != "s2" {
				t.Errorf("most recent session = %q, want s2", sessions[0].ID)
			}
			s1 := sessions[1]
			if s1.Entries != 3 || s1.Errors != 1 {
				t.Errorf("s1 = %+v, want 3 entries and 1 error", s1)
			}
			if !s1.First.Equal(base) || !s1.Last.Equal(base.Add(2*time.Second)) {
				t.Errorf("s1 span = %v..%v, want %v..%v", s1.First, s1.Last, base, base.Add(2*time.Second))
			}

			stats, err := s.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.TotalEntries != 4 || stats.Sessions != 2 {
				t.Errorf("Stats() = %+v", stats)
			}
			if stats.ByMode["eval"] != 2 || stats.ByMode["parse"] != 2 {
				t.Errorf("ByMode = %v", stats.ByMode)
			}
			if stats.ByErrorCode["EVAL_UNDEFINED_VARIABLE"] != 1 {
				t.Errorf("ByErrorCode = %v", stats.ByErrorCode)
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			old := &Entry{SessionID: "s", Input: "old", Timestamp: time.Now().Add(-48 * time.Hour)}
			fresh := &Entry{SessionID: "s", Input: "fresh"}
			for _, e := range []*Entry{old, fresh} {
				if err := s.Record(ctx, e); err != nil {
					t.Fatalf("Record() error = %v", err)
				}
			}

			deleted, err := s.Prune(ctx, 24*time.Hour)
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != 1 {
				t.Errorf("Prune() deleted %d, want 1", deleted)
			}

			entries, _ := s.Query(ctx, Filter{})
			if len(entries) != 1 || entries[0].Input != "fresh" {
				t.Errorf("remaining entries = %v", entries)
			}
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.Record(ctx, &Entry{SessionID: "s", Input: "1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := first.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum() error = %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	entries, err := second.Query(ctx, Filter{})
	if err != nil || len(entries) != 1 {
		t.Errorf("Query() after reopen = %v, %v", entries, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 10, 17, 12, 30, 0, 500000000, time.UTC)
	if got := parseTimestamp("2026-10-17 12:30:00.5+00:00"); !got.Equal(want) {
		t.Errorf("parseTimestamp() = %v, want %v", got, want)
	}
	if got := parseTimestamp("not a time"); !got.IsZero() {
		t.Errorf("parseTimestamp(garbage) = %v, want zero", got)
	}
}
