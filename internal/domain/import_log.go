package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures row or panel level issues that occur during an import.
type ImportLogEntry struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	PanelName    string    `json:"panel_name,omitempty"`
	RowNumber    *int      `json:"row_number,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
