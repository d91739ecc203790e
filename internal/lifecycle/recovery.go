package lifecycle

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/registry"
	"github.com/kweiss/reelsmith/internal/types"
)

// RecoverOnBoot reconciles the registry with reality after a process
// restart. Runs the previous process left running or queued are resumed
// from their last checkpoint; runs awaiting review are restored to the
// gate (or resumed if a continue was already requested); a stale run
// with no loadable checkpoint is marked failed with a diagnostic and not
// retried.
func (m *Manager) RecoverOnBoot(ctx context.Context) error {
	recs, err := m.opts.Registry.List(ctx)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		switch rec.Status {
		case types.StatusRunning, types.StatusQueued, types.StatusAwaitingReview:
		default:
			continue
		}

		state, err := m.opts.Checkpoints.Load(rec.ID.String())
		if err != nil {
			if errors.Is(err, checkpoint.ErrNotFound) {
				log.Printf("run %s: no checkpoint found during recovery; marking failed", rec.ID)
				m.patch(ctx, rec.ID, registryFailedPatch("recovery failed: checkpoint document missing"))
				continue
			}
			log.Printf("run %s: checkpoint unreadable during recovery: %v", rec.ID, err)
			m.patch(ctx, rec.ID, registryFailedPatch("recovery failed: "+err.Error()))
			continue
		}

		if rec.Status == types.StatusAwaitingReview && !state.ContinueRequested {
			// Restore the gate; the run resumes when the user continues.
			log.Printf("run %s: restored awaiting review at %s", rec.ID, state.CurrentStage)
			continue
		}

		log.Printf("run %s: resuming at %s after restart", rec.ID, state.CurrentStage)
		if err := m.Start(ctx, rec.ID); err != nil {
			log.Printf("run %s: failed to resume: %v", rec.ID, err)
		}
	}
	return nil
}

func registryFailedPatch(reason string) registry.Patch {
	now := time.Now().UTC()
	return registry.Patch{
		Status:      statusPtr(types.StatusFailed),
		Error:       &reason,
		CompletedAt: &now,
	}
}
