package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Analytica/internal/domain"
)

// SnapshotRepo — репозиторий снимков состояний пайплайнов.
//
// Таблица pipeline_snapshots хранит последний снимок на pipeline_id;
// recorder перезаписывает его при каждом status-update.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepo создаёт новый SnapshotRepo.
func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Upsert сохраняет снимок, перезаписывая предыдущий для того же pipeline.
func (r *SnapshotRepo) Upsert(ctx context.Context, snap *domain.Snapshot) error {
	stateJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO pipeline_snapshots (pipeline_id, correlation_id, status, current_stage, progress, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pipeline_id) DO UPDATE
		SET correlation_id = EXCLUDED.correlation_id,
		    status         = EXCLUDED.status,
		    current_stage  = EXCLUDED.current_stage,
		    progress       = EXCLUDED.progress,
		    state          = EXCLUDED.state,
		    updated_at     = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		snap.PipelineID,
		snap.CorrelationID,
		snap.Status,
		nullString(string(snap.CurrentStage)),
		snap.Progress,
		stateJSON,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetByID возвращает снимок по pipeline ID.
func (r *SnapshotRepo) GetByID(ctx context.Context, pipelineID uuid.UUID) (*domain.Snapshot, error) {
	query := `
		SELECT state
		FROM pipeline_snapshots
		WHERE pipeline_id = $1
	`
	return scanSnapshot(r.pool.QueryRow(ctx, query, pipelineID))
}

// List возвращает снимки с фильтрацией по статусу.
func (r *SnapshotRepo) List(ctx context.Context, filter SnapshotFilter) ([]domain.Snapshot, error) {
	query := `
		SELECT state
		FROM pipeline_snapshots
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var stateJSON []byte
		if err := rows.Scan(&stateJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap domain.Snapshot
		if err := json.Unmarshal(stateJSON, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Delete удаляет снимок пайплайна.
func (r *SnapshotRepo) Delete(ctx context.Context, pipelineID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pipeline_snapshots WHERE pipeline_id = $1`, pipelineID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// SnapshotFilter — параметры фильтрации снимков.
type SnapshotFilter struct {
	Status domain.PipelineStatus
	Limit  int
	Offset int
}

// scanSnapshot сканирует одну строку в Snapshot.
func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var stateJSON []byte

	err := row.Scan(&stateJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(stateJSON, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
