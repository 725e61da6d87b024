package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertHistorySQL = `INSERT INTO panel_status_history (panel_id, status, created_at, user_id, image_url, notes, import_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (import_key) DO NOTHING`

type panelHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPanelHistoryRepository creates a history store backed by pgxpool.
func NewPanelHistoryRepository(pool *pgxpool.Pool) PanelHistoryRepository {
	return &panelHistoryRepository{pool: pool}
}

func (r *panelHistoryRepository) InsertBatch(ctx context.Context, records []domain.PanelHistory) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, record := range records {
			batch.Queue(
				insertHistorySQL,
				record.PanelID,
				int32(record.Status),
				record.CreatedAt,
				record.UserID,
				record.ImageURL,
				record.Notes,
				record.ImportKey,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range records {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return fmt.Errorf("insert history row %d: %w", i+1, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert history batch: %w", err)
	}

	return inserted, nil
}

func (r *panelHistoryRepository) ListByPanel(ctx context.Context, panelID uuid.UUID) ([]domain.PanelHistory, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, panel_id, status, created_at, user_id, image_url, notes, import_key
		 FROM panel_status_history
		 WHERE panel_id = $1
		 ORDER BY created_at, id`,
		panelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list panel history: %w", err)
	}
	defer rows.Close()

	history := []domain.PanelHistory{}
	for rows.Next() {
		var (
			entry     domain.PanelHistory
			status    int32
			createdAt pgtype.Timestamptz
			importKey pgtype.UUID
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.PanelID,
			&status,
			&createdAt,
			&entry.UserID,
			&entry.ImageURL,
			&entry.Notes,
			&importKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan panel history: %w", err)
		}
		entry.Status = domain.PanelStatus(status)
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}
		if importKey.Valid {
			key := uuid.UUID(importKey.Bytes)
			entry.ImportKey = &key
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate panel history: %w", err)
	}

	return history, nil
}

func (r *panelHistoryRepository) UpdateTimestamp(ctx context.Context, update domain.HistoryTimestampUpdate) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE panel_status_history SET created_at = $2 WHERE id = $1`,
		update.ID,
		update.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update history timestamp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("history entry %s not found", update.ID)
	}
	return nil
}
