package model

import (
	"time"

	"github.com/sheltermap/campaddr/internal/diag"
)

// RunStatus tracks a pipeline run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded execution of the addressing pipeline.
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Manifest   string      `json:"manifest,omitempty"` // JSON snapshot of the layer manifest
	Error      string      `json:"error,omitempty"`
	Summary    *RunSummary `json:"summary,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary captures what a run produced, for the audit trail and the QA
// review server.
type RunSummary struct {
	Structures  int              `json:"structures"`
	Shelters    int              `json:"shelters"`
	Lines       int              `json:"lines"`
	Doors       int              `json:"doors"`
	SubBlocks   int              `json:"sub_blocks"`
	Addressed   int              `json:"addressed"`
	Fallback    int              `json:"fallback"`
	Stages      []StageResult    `json:"stages"`
	Diagnostics []diag.Condition `json:"diagnostics,omitempty"`
}

// StageResult records one pipeline stage's outcome.
type StageResult struct {
	Name       string         `json:"name"`
	DurationMs int64          `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
