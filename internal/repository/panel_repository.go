package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type panelRepository struct {
	pool *pgxpool.Pool
}

// NewPanelRepository creates a panel directory backed by pgxpool.
func NewPanelRepository(pool *pgxpool.Pool) PanelRepository {
	return &panelRepository{pool: pool}
}

// List returns every panel with its current status.
func (r *panelRepository) List(ctx context.Context) ([]domain.Panel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, status FROM panels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	defer rows.Close()

	panels := []domain.Panel{}
	for rows.Next() {
		var (
			panel  domain.Panel
			status int32
		)
		if err := rows.Scan(&panel.ID, &panel.Name, &status); err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panel.Status = domain.PanelStatus(status)
		panels = append(panels, panel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate panels: %w", err)
	}

	return panels, nil
}

// GetStatuses loads the live status of the given panels in one query.
// Panels that do not exist are absent from the result.
func (r *panelRepository) GetStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PanelStatus, error) {
	statuses := make(map[uuid.UUID]domain.PanelStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, status FROM panels WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load panel statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     uuid.UUID
			status int32
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan panel status: %w", err)
		}
		statuses[id] = domain.PanelStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate panel statuses: %w", err)
	}

	return statuses, nil
}
