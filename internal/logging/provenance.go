package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_log (
	id           TEXT PRIMARY KEY,
	network_hash TEXT NOT NULL,
	state        TEXT NOT NULL,
	nodes        TEXT NOT NULL,
	phi          REAL NOT NULL,
	cut_json     TEXT,
	concepts     INTEGER NOT NULL,
	elapsed_ms   INTEGER NOT NULL,
	note         TEXT,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_log_created ON analysis_log(created_at);
`

// EnsureSchema creates the analysis_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("ensure analysis schema: %w", err)
	}
	return nil
}

// #region log-analysis
// LogAnalysis writes one analysis record. A missing ID or CreatedAt is
// filled in; the assigned ID is returned.
func LogAnalysis(db *sql.DB, entry AnalysisEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO analysis_log (id, network_hash, state, nodes, phi, cut_json, concepts, elapsed_ms, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.NetworkHash,
		entry.State,
		entry.Nodes,
		entry.Phi,
		nullIfEmpty(entry.CutJSON),
		entry.Concepts,
		entry.ElapsedMS,
		nullIfEmpty(entry.Note),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("log analysis: %w", err)
	}
	return entry.ID, nil
}

// #endregion log-analysis

// #region list-analyses
// ListAnalyses returns the most recent entries, newest first. A limit of
// zero or less means all entries.
func ListAnalyses(db *sql.DB, limit int) ([]AnalysisEntry, error) {
	q := `SELECT id, network_hash, state, nodes, phi, cut_json, concepts, elapsed_ms, note, created_at
	      FROM analysis_log ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var entries []AnalysisEntry
	for rows.Next() {
		var e AnalysisEntry
		var cutJSON, note sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.NetworkHash, &e.State, &e.Nodes, &e.Phi, &cutJSON, &e.Concepts, &e.ElapsedMS, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		e.CutJSON = cutJSON.String
		e.Note = note.String
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-analyses

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
