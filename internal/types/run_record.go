// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the registry-level lifecycle state of a run.
type RunStatus string

// Run statuses. Interruption is not a status of its own: an interrupted
// run goes back to queued with Interrupted=true in its checkpoint.
const (
	StatusQueued         RunStatus = "queued"
	StatusRunning        RunStatus = "running"
	StatusAwaitingReview RunStatus = "awaiting_review"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
)

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusAwaitingReview, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// RunRecord is the registry entry for a run. It is created on submission,
// mutated only by the lifecycle manager, and never deleted. CurrentStage
// and CompletedStages are a cached mirror of the checkpoint so listing
// runs does not require reading every checkpoint document.
type RunRecord struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	OutputDir string    `json:"output_dir"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`

	CurrentStage    Stage   `json:"current_stage"`
	CompletedStages []Stage `json:"completed_stages"`

	CreatedAt   time.Time  `json:"created_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
