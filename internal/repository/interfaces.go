package repository

import (
	"context"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/google/uuid"
)

// PanelRepository reads the panel directory.
type PanelRepository interface {
	List(ctx context.Context) ([]domain.Panel, error)
	GetStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PanelStatus, error)
}

// UserRepository reads the user directory.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
}

// PanelHistoryRepository stores panel status audit trails.
type PanelHistoryRepository interface {
	// InsertBatch writes all records in one transaction and returns how
	// many were inserted. Records whose import key already exists are skipped.
	InsertBatch(ctx context.Context, records []domain.PanelHistory) (int, error)
	ListByPanel(ctx context.Context, panelID uuid.UUID) ([]domain.PanelHistory, error)
	UpdateTimestamp(ctx context.Context, update domain.HistoryTimestampUpdate) error
}

// ImportLogRepository stores import errors for observability.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error)
}
