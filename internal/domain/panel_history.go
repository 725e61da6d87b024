package domain

import (
	"time"

	"github.com/google/uuid"
)

// PanelHistory is one entry of a panel's status audit trail.
type PanelHistory struct {
	ID        uuid.UUID   `json:"id"`
	PanelID   uuid.UUID   `json:"panel_id"`
	Status    PanelStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uuid.UUID   `json:"user_id"`
	ImageURL  *string     `json:"image_url,omitempty"`
	Notes     *string     `json:"notes,omitempty"`
	// ImportKey is set for rows written by the importer and makes re-runs
	// of the same file collapse onto the rows already stored.
	ImportKey *uuid.UUID `json:"import_key,omitempty"`
}

// HistoryTimestampUpdate re-dates a single stored history entry.
type HistoryTimestampUpdate struct {
	ID        uuid.UUID
	CreatedAt time.Time
}
