// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// EventType classifies run events on the stream bus.
type EventType string

// Event types. Events are a derived observability layer; the checkpoint
// document remains the source of truth.
const (
	EventRunStatus       EventType = "run_status"
	EventStageTransition EventType = "stage_transition"
	EventStageCompleted  EventType = "stage_completed"
	EventAssetGenerated  EventType = "asset_generated"
	EventLog             EventType = "log"
)

// RunEvent is an immutable entry in a run's bounded event history. IDs
// are monotonic per run and reset with the process; event history is a
// liveness aid, not persisted state.
type RunEvent struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
