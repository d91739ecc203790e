package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kweiss/reelsmith/internal/types"
)

// PostgresRegistry stores run records in a pipeline_runs table.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRegistry{pool: pool}, nil
}

// Close closes the connection pool.
func (r *PostgresRegistry) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// EnsureSchema creates the pipeline_runs table if it does not exist.
func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			output_dir TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			current_stage TEXT NOT NULL DEFAULT '',
			completed_stages JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			queued_at TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new run record.
func (r *PostgresRegistry) Create(ctx context.Context, rec *types.RunRecord) error {
	stagesJSON, err := json.Marshal(rec.CompletedStages)
	if err != nil {
		return fmt.Errorf("failed to marshal completed stages: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO pipeline_runs
		   (id, title, output_dir, status, error, current_stage, completed_stages,
		    created_at, queued_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Title, rec.OutputDir, rec.Status, rec.Error,
		rec.CurrentStage, stagesJSON,
		rec.CreatedAt, rec.QueuedAt, rec.StartedAt, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (r *PostgresRegistry) Get(ctx context.Context, id uuid.UUID) (*types.RunRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, output_dir, status, error, current_stage, completed_stages,
		        created_at, queued_at, started_at, completed_at
		 FROM pipeline_runs WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return rec, nil
}

// List returns all records in creation order.
func (r *PostgresRegistry) List(ctx context.Context) ([]types.RunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, output_dir, status, error, current_stage, completed_stages,
		        created_at, queued_at, started_at, completed_at
		 FROM pipeline_runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Patch applies a partial update. Implemented read-modify-write; the
// lifecycle manager is the only writer per run, so no row contention.
func (r *PostgresRegistry) Patch(ctx context.Context, id uuid.UUID, p Patch) error {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	apply(rec, p)

	stagesJSON, err := json.Marshal(rec.CompletedStages)
	if err != nil {
		return fmt.Errorf("failed to marshal completed stages: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, error = $2, current_stage = $3, completed_stages = $4,
		     queued_at = $5, started_at = $6, completed_at = $7
		 WHERE id = $8`,
		rec.Status, rec.Error, rec.CurrentStage, stagesJSON,
		rec.QueuedAt, rec.StartedAt, rec.CompletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to patch run record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*types.RunRecord, error) {
	var rec types.RunRecord
	var stagesJSON []byte
	err := row.Scan(&rec.ID, &rec.Title, &rec.OutputDir, &rec.Status, &rec.Error,
		&rec.CurrentStage, &stagesJSON,
		&rec.CreatedAt, &rec.QueuedAt, &rec.StartedAt, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	if stagesJSON != nil {
		_ = json.Unmarshal(stagesJSON, &rec.CompletedStages)
	}
	return &rec, nil
}
