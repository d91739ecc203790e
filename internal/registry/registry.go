// Package registry provides the append-only run registry: RunRecords
// are created on submission, patched by the lifecycle manager, and never
// deleted. Two backends exist: PostgreSQL (pgx) when a database URL is
// configured, and a JSON file for database-less operation.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kweiss/reelsmith/internal/types"
)

// ErrNotFound is returned when no record exists for a run id.
var ErrNotFound = errors.New("run not found")

// Patch describes a partial update of a run record. Nil fields are left
// unchanged; CompletedStages of nil means no change (an empty slice
// clears the list).
type Patch struct {
	Status          *types.RunStatus
	Error           *string
	CurrentStage    *types.Stage
	CompletedStages []types.Stage
	QueuedAt        *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Registry stores run records. Implementations must serialize Patch
// calls per record so the registry stays single-writer-at-a-time.
type Registry interface {
	Create(ctx context.Context, rec *types.RunRecord) error
	Get(ctx context.Context, id uuid.UUID) (*types.RunRecord, error)
	List(ctx context.Context) ([]types.RunRecord, error)
	Patch(ctx context.Context, id uuid.UUID, p Patch) error
}

// apply merges a patch into a record in place.
func apply(rec *types.RunRecord, p Patch) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Error != nil {
		rec.Error = *p.Error
	}
	if p.CurrentStage != nil {
		rec.CurrentStage = *p.CurrentStage
	}
	if p.CompletedStages != nil {
		rec.CompletedStages = append([]types.Stage(nil), p.CompletedStages...)
	}
	if p.QueuedAt != nil {
		rec.QueuedAt = p.QueuedAt
	}
	if p.StartedAt != nil {
		rec.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		rec.CompletedAt = p.CompletedAt
	}
}
