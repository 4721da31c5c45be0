package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-analysis-tests
func TestLogAnalysis_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := AnalysisEntry{
		NetworkHash: "abc123",
		State:       "[1,0]",
		Nodes:       "[0,1]",
		Phi:         2.0,
		CutJSON:     `{"severed":[0],"intact":[1]}`,
		Concepts:    2,
		ElapsedMS:   12,
		Note:        "copy loop",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	id, err := LogAnalysis(db, entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected an assigned id")
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM analysis_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var phi float64
	var hash string
	db.QueryRow("SELECT phi, network_hash FROM analysis_log").Scan(&phi, &hash)
	if phi != 2.0 {
		t.Errorf("expected phi 2.0, got %v", phi)
	}
	if hash != "abc123" {
		t.Errorf("expected network_hash 'abc123', got %q", hash)
	}
}

func TestLogAnalysis_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	_, err := LogAnalysis(db, AnalysisEntry{
		NetworkHash: "h",
		State:       "[0]",
		Nodes:       "[0]",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM analysis_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogAnalysis_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	_, err := LogAnalysis(db, AnalysisEntry{
		NetworkHash: "h",
		State:       "[0,0]",
		Nodes:       "[0,1]",
		Phi:         0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cutJSON, note sql.NullString
	db.QueryRow("SELECT cut_json, note FROM analysis_log").Scan(&cutJSON, &note)
	if cutJSON.Valid {
		t.Error("expected NULL cut_json for empty string")
	}
	if note.Valid {
		t.Error("expected NULL note for empty string")
	}
}

func TestLogAnalysis_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	_, err := LogAnalysis(db, AnalysisEntry{NetworkHash: "h", State: "[0]", Nodes: "[0]"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-analysis-tests

// #region list-analyses-tests
func TestListAnalyses_Order(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for i, ts := range []time.Time{
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	} {
		_, err := LogAnalysis(db, AnalysisEntry{
			NetworkHash: "h",
			State:       "[0]",
			Nodes:       "[0]",
			Phi:         float64(i),
			CreatedAt:   ts,
		})
		if err != nil {
			t.Fatalf("log analysis %d: %v", i, err)
		}
	}

	entries, err := ListAnalyses(db, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Phi != 2 || entries[1].Phi != 1 {
		t.Errorf("expected newest first, got phis %v, %v", entries[0].Phi, entries[1].Phi)
	}

	all, err := ListAnalyses(db, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 entries, got %d", len(all))
	}
}

// #endregion list-analyses-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
