package panelimport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/paneltrack/internal/domain"
)

// ValidateRow checks one row against the directory and the status
// enumeration. Every failing condition adds an error; nothing short-circuits.
func ValidateRow(row domain.ImportRow, dir *Directory) domain.ValidationVerdict {
	verdict := domain.ValidationVerdict{
		Errors:   []string{},
		Warnings: []string{},
	}

	panelName := strings.TrimSpace(row.PanelName)
	statusText := strings.TrimSpace(row.StatusText)
	changedBy := strings.TrimSpace(row.ChangedBy)

	if panelName == "" {
		verdict.Errors = append(verdict.Errors, "panel_name is required")
	}
	if statusText == "" {
		verdict.Errors = append(verdict.Errors, "status is required")
	}

	if panelName != "" {
		if _, ok := dir.Panel(panelName); !ok {
			verdict.Errors = append(verdict.Errors, fmt.Sprintf("panel %q not found", panelName))
		}
	}

	if changedBy == "" {
		verdict.Warnings = append(verdict.Warnings, "changed_by is empty, the default actor will be used")
	} else if _, ok := dir.User(changedBy); !ok {
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("user %q not found", changedBy))
	}

	if statusText != "" {
		if _, ok := domain.LookupStatus(statusText); !ok {
			verdict.Errors = append(verdict.Errors, fmt.Sprintf("status %q is not recognized", statusText))
		}
	}

	if _, err := ParseDate(row.RawDate); err != nil {
		if errors.Is(err, ErrNoDate) {
			verdict.Warnings = append(verdict.Warnings, "created_at is empty, the row is placed before the panel's earliest dated row")
		} else {
			verdict.Errors = append(verdict.Errors, fmt.Sprintf("created_at: %v", err))
		}
	}

	verdict.IsValid = len(verdict.Errors) == 0
	return verdict
}
