package types

import "time"

// Run is a persisted remap invocation.
type Run struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Sources   []string    `json:"sources"`
	Coverage  CoverageMap `json:"coverage"`
}

// RunInfo is the listing form of a run, with its total summary.
type RunInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
	Summary   Summary   `json:"summary"`
}
