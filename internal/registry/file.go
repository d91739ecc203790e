package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/kweiss/reelsmith/internal/types"
)

// FileRegistry persists the full record list as one JSON document,
// rewritten atomically on every mutation. Suitable for the single
// operator, single process deployment this tool targets.
type FileRegistry struct {
	path string

	mu    sync.Mutex
	recs  map[uuid.UUID]*types.RunRecord
	order []uuid.UUID
}

// NewFileRegistry opens (or initializes) a file-backed registry at path.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{
		path: path,
		recs: map[uuid.UUID]*types.RunRecord{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var list []types.RunRecord
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	for i := range list {
		rec := list[i]
		r.recs[rec.ID] = &rec
		r.order = append(r.order, rec.ID)
	}
	return r, nil
}

// Create appends a new record and persists the list.
func (r *FileRegistry) Create(_ context.Context, rec *types.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recs[rec.ID]; exists {
		return fmt.Errorf("run %s already registered", rec.ID)
	}
	cp := *rec
	r.recs[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return r.persistLocked()
}

// Get returns a copy of the record for id, or ErrNotFound.
func (r *FileRegistry) Get(_ context.Context, id uuid.UUID) (*types.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns copies of all records in creation order.
func (r *FileRegistry) List(_ context.Context) ([]types.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.RunRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.recs[id])
	}
	return out, nil
}

// Patch applies a partial update and persists the list.
func (r *FileRegistry) Patch(_ context.Context, id uuid.UUID, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok {
		return ErrNotFound
	}
	apply(rec, p)
	return r.persistLocked()
}

func (r *FileRegistry) persistLocked() error {
	list := make([]types.RunRecord, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, *r.recs[id])
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
