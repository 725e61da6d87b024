package domain

import (
	"github.com/google/uuid"
)

// Panel is a fabricated facade unit with its authoritative current status.
type Panel struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Status PanelStatus `json:"status"`
}

// User is an actor that can be credited with a status change.
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
