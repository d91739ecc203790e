// Package checkpoint provides durable, atomic persistence for run state
// documents. The checkpoint is the single source of truth for a run;
// registry and event stream are derived views that may lag but never
// permanently disagree.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kweiss/reelsmith/internal/types"
)

// Workspace file and directory names.
const (
	CheckpointFile = "checkpoint.json"
	PlanFile       = "plan.md"

	AssetsDir = "assets"
	FramesDir = "frames"
	ClipsDir  = "clips"
	FinalDir  = "final"
)

// ErrNotFound is returned by Load when no checkpoint exists for a run.
var ErrNotFound = errors.New("checkpoint not found")

// Store reads and writes one checkpoint document per run workspace.
// Writes are atomic from the reader's perspective (temp file + rename).
type Store struct {
	root string
}

// NewStore creates a store resolving relative workspace keys against
// root. Absolute keys are used as-is.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir resolves a run key to its workspace directory.
func (s *Store) Dir(runKey string) string {
	if filepath.IsAbs(runKey) {
		return runKey
	}
	return filepath.Join(s.root, runKey)
}

// Path returns the checkpoint document path for a run key.
func (s *Store) Path(runKey string) string {
	return filepath.Join(s.Dir(runKey), CheckpointFile)
}

// Save persists the state document, stamping LastSavedAt and creating
// the workspace layout on first save. Alongside the document it rewrites
// the human-readable plan snapshot (best effort).
func (s *Store) Save(state *types.RunState) error {
	dir := s.Dir(state.OutputDir)
	for _, sub := range []string{"", AssetsDir, FramesDir, ClipsDir, FinalDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create workspace dir: %w", err)
		}
	}

	state.LastSavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, CheckpointFile), data); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	// The snapshot is a side channel for humans; its failure must not
	// fail the checkpoint.
	_ = writeAtomic(filepath.Join(dir, PlanFile), []byte(RenderPlan(state)))

	return nil
}

// Load reads the checkpoint document for a run key. Returns ErrNotFound
// when the workspace has no checkpoint.
func (s *Store) Load(runKey string) (*types.RunState, error) {
	data, err := os.ReadFile(s.Path(runKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state types.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	if state.GeneratedAssets == nil {
		state.GeneratedAssets = map[string]string{}
	}
	if state.GeneratedFrames == nil {
		state.GeneratedFrames = map[int]*types.FramePair{}
	}
	if state.GeneratedVideos == nil {
		state.GeneratedVideos = map[int]string{}
	}
	return &state, nil
}

// writeAtomic writes data to path via a temp file and rename so a
// concurrent reader never observes a half-written document.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
