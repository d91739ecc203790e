// Package lifecycle owns the run registry and drives background
// execution: one task per active run, recovery on boot, review gating,
// and interruption with a timeout-bounded force-takeover. Mutating
// operations (instructions, continue, redo) gracefully interrupt an
// in-flight execution, apply their change to the checkpoint, and resume.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/events"
	"github.com/kweiss/reelsmith/internal/interrupt"
	"github.com/kweiss/reelsmith/internal/registry"
	"github.com/kweiss/reelsmith/internal/stages"
	"github.com/kweiss/reelsmith/internal/types"
)

// Default tuning values, overridable via Options.
const (
	DefaultInterruptTimeout = 30 * time.Second
	DefaultInterruptGrace   = 2 * time.Second
	DefaultPollInterval     = 750 * time.Millisecond
)

// Options configures a Manager.
type Options struct {
	Registry    registry.Registry
	Checkpoints *checkpoint.Store
	Bus         *events.Bus
	Executor    stages.Executor

	// InterruptTimeout bounds how long a graceful interruption waits for
	// the in-flight execution before force-evicting it.
	InterruptTimeout time.Duration
	// InterruptGrace delays clearing an evicted execution's signal so
	// its next suspension-point check still sees it asserted.
	InterruptGrace time.Duration
	// PollInterval is how often the event watcher re-reads a running
	// run's checkpoint.
	PollInterval time.Duration
	// ReviewGate pauses runs for user review before video generation.
	ReviewGate bool
}

// handle tracks one in-flight execution. The signal is per run, so
// interrupting one run never disturbs another.
type handle struct {
	sig  *interrupt.Signal
	done chan struct{}
}

// Manager enforces the one-execution-per-run invariant and mediates all
// control operations against runs.
type Manager struct {
	opts Options

	mu       sync.Mutex
	inflight map[uuid.UUID]*handle
}

// NewManager creates a manager, filling unset tuning options with
// defaults.
func NewManager(opts Options) *Manager {
	if opts.InterruptTimeout <= 0 {
		opts.InterruptTimeout = DefaultInterruptTimeout
	}
	if opts.InterruptGrace <= 0 {
		opts.InterruptGrace = DefaultInterruptGrace
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Manager{
		opts:     opts,
		inflight: make(map[uuid.UUID]*handle),
	}
}

// CreateRun registers a new run: a fresh workspace with an initial
// checkpoint, and a queued registry record. The run does not execute
// until Start is called.
func (m *Manager) CreateRun(ctx context.Context, title, brief string) (*types.RunRecord, error) {
	id := uuid.New()
	state := types.NewRunState(id.String(), brief)
	if err := m.opts.Checkpoints.Save(state); err != nil {
		return nil, fmt.Errorf("failed to initialize run workspace: %w", err)
	}

	now := time.Now().UTC()
	rec := &types.RunRecord{
		ID:           id,
		Title:        title,
		OutputDir:    m.opts.Checkpoints.Dir(id.String()),
		Status:       types.StatusQueued,
		CurrentStage: types.StageAnalysis,
		CreatedAt:    now,
		QueuedAt:     &now,
	}
	if err := m.opts.Registry.Create(ctx, rec); err != nil {
		return nil, err
	}

	m.opts.Bus.Emit(id.String(), types.EventRunStatus, map[string]any{
		"status": string(types.StatusQueued),
	})
	return rec, nil
}

// Start launches background execution for a run. A second Start while
// one execution is in flight is a no-op.
func (m *Manager) Start(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	if _, exists := m.inflight[id]; exists {
		m.mu.Unlock()
		return nil
	}

	state, err := m.opts.Checkpoints.Load(id.String())
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fmt.Errorf("run %s has no checkpoint", id)
		}
		return err
	}

	h := &handle{sig: interrupt.NewSignal(), done: make(chan struct{})}
	m.inflight[id] = h
	m.mu.Unlock()

	go m.execute(id, h, state)
	return nil
}

// execute is the background task for one run. It drives the stage loop
// to completion, review gate, failure, or interruption, keeping the
// registry mirror and event stream up to date.
func (m *Manager) execute(id uuid.UUID, h *handle, state *types.RunState) {
	ctx := context.Background()
	runID := id.String()

	defer func() {
		m.mu.Lock()
		// Only deregister if we were not force-evicted and replaced.
		if m.inflight[id] == h {
			delete(m.inflight, id)
		}
		m.mu.Unlock()
		close(h.done)
	}()

	state.Interrupted = false
	m.patch(ctx, id, registry.Patch{
		Status:    statusPtr(types.StatusRunning),
		StartedAt: timePtr(time.Now().UTC()),
		Error:     strPtr(""),
	})
	m.opts.Bus.Emit(runID, types.EventRunStatus, map[string]any{
		"status": string(types.StatusRunning),
	})

	w := newWatcher(m.opts.Checkpoints, m.opts.Bus, runID, m.opts.PollInterval, state)
	go w.run()
	defer w.stop()

	for !stages.Terminal(state) {
		if m.opts.ReviewGate && state.CurrentStage == types.StageVideoGeneration && !state.StageCompleted(types.StageVideoGeneration) {
			if !state.ContinueRequested {
				state.AwaitingUserReview = true
				if err := m.opts.Checkpoints.Save(state); err != nil {
					log.Printf("run %s: failed to checkpoint review gate: %v", runID, err)
				}
				m.patch(ctx, id, registry.Patch{Status: statusPtr(types.StatusAwaitingReview)})
				m.opts.Bus.Emit(runID, types.EventRunStatus, map[string]any{
					"status": string(types.StatusAwaitingReview),
					"stage":  string(state.CurrentStage),
				})
				return
			}
			state.ContinueRequested = false
			state.AwaitingUserReview = false
			state.RecordDecision(state.CurrentStage, "continue", "review gate passed")
			if err := m.opts.Checkpoints.Save(state); err != nil {
				log.Printf("run %s: failed to checkpoint review decision: %v", runID, err)
			}
		}

		err := stages.Advance(ctx, h.sig, state, m.opts.Executor, m.opts.Checkpoints)
		m.patch(ctx, id, registry.Patch{
			CurrentStage:    stagePtr(state.CurrentStage),
			CompletedStages: state.CompletedStages,
		})
		if err != nil {
			if interrupt.IsInterrupted(err) {
				m.patch(ctx, id, registry.Patch{
					Status:   statusPtr(types.StatusQueued),
					QueuedAt: timePtr(time.Now().UTC()),
				})
				m.opts.Bus.Emit(runID, types.EventRunStatus, map[string]any{
					"status":      string(types.StatusQueued),
					"interrupted": true,
				})
				return
			}
			m.patch(ctx, id, registry.Patch{
				Status:      statusPtr(types.StatusFailed),
				Error:       strPtr(err.Error()),
				CompletedAt: timePtr(time.Now().UTC()),
			})
			m.opts.Bus.Emit(runID, types.EventRunStatus, map[string]any{
				"status": string(types.StatusFailed),
				"error":  err.Error(),
			})
			return
		}
	}

	m.patch(ctx, id, registry.Patch{
		Status:      statusPtr(types.StatusCompleted),
		CompletedAt: timePtr(time.Now().UTC()),
	})
	m.opts.Bus.Emit(runID, types.EventRunStatus, map[string]any{
		"status":    string(types.StatusCompleted),
		"final_cut": state.FinalCutPath,
	})
}

// Stop gracefully interrupts a run's execution. Stopping a run that is
// not executing is a no-op. The returned warning is non-empty when the
// execution did not exit within the timeout and was force-evicted.
func (m *Manager) Stop(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := m.opts.Registry.Get(ctx, id); err != nil {
		return "", err
	}
	_, warning := m.interruptRun(id)
	return warning, nil
}

// interruptRun performs the graceful interruption protocol against a
// run's in-flight execution: assert its signal, wait up to the timeout,
// clear. On timeout the handle is evicted (treated as abandoned) and the
// signal is cleared only after a grace delay, so the abandoned
// execution's next suspension-point check still sees it asserted.
// Returns whether an execution was in flight and a warning for the
// forced case.
func (m *Manager) interruptRun(id uuid.UUID) (wasRunning bool, warning string) {
	m.mu.Lock()
	h, exists := m.inflight[id]
	m.mu.Unlock()
	if !exists {
		return false, ""
	}

	h.sig.Set(true)
	select {
	case <-h.done:
		h.sig.Set(false)
		return true, ""
	case <-time.After(m.opts.InterruptTimeout):
	}

	m.mu.Lock()
	if m.inflight[id] == h {
		delete(m.inflight, id)
	}
	m.mu.Unlock()

	grace := m.opts.InterruptGrace
	go func() {
		time.Sleep(grace)
		h.sig.Set(false)
	}()

	log.Printf("run %s: execution did not stop within %s; evicted", id, m.opts.InterruptTimeout)
	return true, fmt.Sprintf("execution did not stop within %s and was abandoned; its last checkpoint remains authoritative", m.opts.InterruptTimeout)
}

// Retry resumes a failed run from its last checkpoint.
func (m *Manager) Retry(ctx context.Context, id uuid.UUID) error {
	rec, err := m.opts.Registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != types.StatusFailed {
		return fmt.Errorf("run %s is %s, not failed", id, rec.Status)
	}
	m.patch(ctx, id, registry.Patch{
		Status:   statusPtr(types.StatusQueued),
		Error:    strPtr(""),
		QueuedAt: timePtr(time.Now().UTC()),
	})
	return m.Start(ctx, id)
}

// Continue releases a run held at the review gate and resumes it.
func (m *Manager) Continue(ctx context.Context, id uuid.UUID) (string, error) {
	return m.mutate(ctx, id, true, func(state *types.RunState) error {
		state.ContinueRequested = true
		return nil
	})
}

// SubmitInstruction queues a free-text instruction against a pending
// stage. Instructions for a stage already completed require a redo to
// take effect; queueing them is still allowed.
func (m *Manager) SubmitInstruction(ctx context.Context, id uuid.UUID, stage types.Stage, text string) (string, error) {
	if !stage.Valid() {
		return "", fmt.Errorf("invalid stage %q", stage)
	}
	if text == "" {
		return "", fmt.Errorf("instruction text is empty")
	}
	return m.mutate(ctx, id, false, func(state *types.RunState) error {
		state.QueueInstruction(stage, text)
		return nil
	})
}

// RedoFromStage rewinds a run to the target stage and resumes it.
// Artifacts are not discarded; stages whose outputs survive re-complete
// without regenerating them.
func (m *Manager) RedoFromStage(ctx context.Context, id uuid.UUID, stage types.Stage) (string, error) {
	return m.mutate(ctx, id, true, func(state *types.RunState) error {
		if err := stages.SkipTo(state, stage); err != nil {
			return err
		}
		state.RecordDecision(stage, "redo_stage", "rewound to "+string(stage))
		return nil
	})
}

// RedoItem invalidates a single produced item plus its dependents and
// resumes the run from the earliest affected stage.
func (m *Manager) RedoItem(ctx context.Context, id uuid.UUID, spec stages.ItemSpec) (string, error) {
	return m.mutate(ctx, id, true, func(state *types.RunState) error {
		if err := stages.RedoItem(state, spec); err != nil {
			return err
		}
		state.RecordDecision(state.CurrentStage, "redo_item", fmt.Sprintf("%s %s", spec.Type, spec.Key))
		return nil
	})
}

// mutate applies fn to a run's checkpoint under the graceful-interrupt
// protocol: stop any in-flight execution, mutate, save, then resume when
// the run was executing or restart explicitly requested.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, restart bool, fn func(*types.RunState) error) (string, error) {
	if _, err := m.opts.Registry.Get(ctx, id); err != nil {
		return "", err
	}

	wasRunning, warning := m.interruptRun(id)

	state, err := m.opts.Checkpoints.Load(id.String())
	if err != nil {
		return warning, err
	}
	if err := fn(state); err != nil {
		return warning, err
	}
	if err := m.opts.Checkpoints.Save(state); err != nil {
		return warning, err
	}
	m.patch(ctx, id, registry.Patch{
		CurrentStage:    stagePtr(state.CurrentStage),
		CompletedStages: state.CompletedStages,
	})

	if wasRunning || restart {
		if err := m.Start(ctx, id); err != nil {
			return warning, err
		}
	}
	return warning, nil
}

// Running reports whether an execution is in flight for the run.
func (m *Manager) Running(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.inflight[id]
	return exists
}

// Shutdown interrupts every in-flight execution. Used by the server's
// shutdown coordinator.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.inflight))
	for id := range m.inflight {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			m.interruptRun(id)
		}(id)
	}
	wg.Wait()
}

// patch applies a registry patch, logging rather than failing on error:
// the checkpoint, not the registry, is the source of truth.
func (m *Manager) patch(ctx context.Context, id uuid.UUID, p registry.Patch) {
	if err := m.opts.Registry.Patch(ctx, id, p); err != nil {
		log.Printf("run %s: registry patch failed: %v", id, err)
	}
}

func statusPtr(s types.RunStatus) *types.RunStatus { return &s }
func stagePtr(s types.Stage) *types.Stage          { return &s }
func strPtr(s string) *string                      { return &s }
func timePtr(t time.Time) *time.Time               { return &t }
