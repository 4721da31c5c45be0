package logging

import "time"

// #region analysis-entry
// AnalysisEntry is a single row in the analysis_log table: one completed
// integration analysis of a subsystem, with enough context to reproduce it.
type AnalysisEntry struct {
	ID          string
	NetworkHash string
	State       string // JSON array of node states
	Nodes       string // JSON array of subsystem node indices
	Phi         float64
	CutJSON     string // JSON of the minimum cut, empty when reducible
	Concepts    int
	ElapsedMS   int64
	Note        string
	CreatedAt   time.Time
}

// #endregion analysis-entry
