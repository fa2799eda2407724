package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/covremap/pkg/remap"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "remap" | "runs" | "close"
	Payload json.RawMessage `json:"payload"`
}

// RemapPayload is the payload for "remap" requests
type RemapPayload struct {
	Sources []string `json:"sources"`
	Exclude []string `json:"exclude,omitempty"`
	// Save stores the result as a run when the server has a datastore.
	Save bool `json:"save,omitempty"`
}

// RemapData is the data field for "remap" responses
type RemapData struct {
	RunID    string                   `json:"run_id,omitempty"`
	Coverage types.CoverageMap        `json:"coverage"`
	Files    map[string]types.Summary `json:"files"`
	Total    types.Summary            `json:"total"`
	Stats    remap.Stats              `json:"stats"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// RunsData is the data field for "runs" responses
type RunsData struct {
	Runs []*types.RunInfo `json:"runs"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "remap" | "runs" | "error"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
}
