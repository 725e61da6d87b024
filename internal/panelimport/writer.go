package panelimport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/google/uuid"
)

// SyncNote annotates records appended to bring the audit trail in line with
// the panel's live status.
const SyncNote = "Automatic status synchronization after import"

// importKeySpace namespaces the deterministic keys of imported records.
var importKeySpace = uuid.MustParse("6f1f4d8e-3c1b-5a57-9a52-0b7d3c2e8f10")

// WriteInput is everything the writer needs for one panel group.
type WriteInput struct {
	Group        PanelGroup
	Directory    *Directory
	DefaultActor string
	// LiveStatus is the panel's current status. When HasLiveStatus is false
	// no synchronization record is considered.
	LiveStatus    domain.PanelStatus
	HasLiveStatus bool
}

// WriteResult summarizes the writes for one panel group.
type WriteResult struct {
	Outcomes   []domain.PanelOutcome
	Inserted   int
	Duplicates int
	Failed     int
	Synced     bool
}

// Writer appends imported history for one panel at a time.
type Writer struct {
	history repository.PanelHistoryRepository
	now     func() time.Time
	logger  *slog.Logger
}

// NewWriter creates a writer that stamps records relative to now.
func NewWriter(history repository.PanelHistoryRepository, now func() time.Time, logger *slog.Logger) *Writer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{history: history, now: now, logger: logger}
}

// WritePanel inserts one batch of history records for the group and, if the
// last imported status differs from the live status, a synchronization record.
// Failures are reported in the result and never returned.
func (w *Writer) WritePanel(ctx context.Context, in WriteInput) WriteResult {
	var result WriteResult
	panel := in.Group.Panel
	now := w.now()

	records, warnings, rowFailures := BuildRecords(in.Group, in.Directory, in.DefaultActor, now)
	result.Outcomes = append(result.Outcomes, rowFailures...)
	result.Failed += len(rowFailures)

	if len(records) == 0 {
		if len(rowFailures) == 0 {
			result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
				PanelName: panel.Name,
				Success:   true,
				Message:   "no rows to import",
			})
		}
		return result
	}

	inserted, err := w.history.InsertBatch(ctx, records)
	if err != nil {
		w.logger.Error("history batch insert failed", "panel", panel.Name, "rows", len(records), "error", err)
		result.Failed += len(records)
		result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
			PanelName: panel.Name,
			Success:   false,
			Message:   fmt.Sprintf("failed to import %d rows", len(records)),
			Rows:      len(records),
			Errors:    []string{err.Error()},
		})
		return result
	}

	result.Inserted = inserted
	result.Duplicates = len(records) - inserted
	message := fmt.Sprintf("imported %d rows", inserted)
	if result.Duplicates > 0 {
		message += fmt.Sprintf(" (%d already present)", result.Duplicates)
	}
	result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
		PanelName: panel.Name,
		Success:   true,
		Message:   message,
		Rows:      len(records),
		Warnings:  warnings,
	})

	if !in.HasLiveStatus {
		return result
	}

	last := records[len(records)-1]
	if last.Status == in.LiveStatus {
		return result
	}

	actor, ok := in.Directory.User(in.DefaultActor)
	if !ok {
		w.logger.Error("status synchronization skipped, default actor missing", "panel", panel.Name, "actor", in.DefaultActor)
		result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
			PanelName: panel.Name,
			Success:   false,
			Message:   "status synchronization skipped",
			Errors:    []string{fmt.Sprintf("default actor %q not found", in.DefaultActor)},
		})
		return result
	}

	sync := syncRecord(panel, in.LiveStatus, actor, last)
	if _, err := w.history.InsertBatch(ctx, []domain.PanelHistory{sync}); err != nil {
		w.logger.Error("status synchronization failed", "panel", panel.Name, "error", err)
		result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
			PanelName: panel.Name,
			Success:   false,
			Message:   "status synchronization failed",
			Rows:      1,
			Errors:    []string{err.Error()},
		})
		return result
	}

	result.Synced = true
	result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
		PanelName: panel.Name,
		Success:   true,
		Message:   fmt.Sprintf("synchronized status %s -> %s", last.Status.Label(), in.LiveStatus.Label()),
		Rows:      1,
	})
	return result
}

// BuildRecords turns a group into history records with strictly increasing
// timestamps. Rows whose actor cannot be resolved are dropped and reported.
// Undated rows sort first; they take the date of the earliest dated row so
// they land just before it, and the import date only when no row is dated.
// Each such placement is returned as a warning.
func BuildRecords(group PanelGroup, dir *Directory, defaultActor string, now time.Time) ([]domain.PanelHistory, []string, []domain.PanelOutcome) {
	records := make([]domain.PanelHistory, 0, len(group.Rows))
	var (
		warnings []string
		failures []domain.PanelOutcome
		previous time.Time
	)

	undatedDate, anchored := now, false
	for _, row := range group.Rows {
		if row.HasDate {
			undatedDate, anchored = row.Date, true
			break
		}
	}

	for idx, row := range group.Rows {
		actor, ok := resolveActor(dir, row.ChangedBy, defaultActor)
		if !ok {
			failures = append(failures, domain.PanelOutcome{
				PanelName: group.Panel.Name,
				Success:   false,
				Message:   fmt.Sprintf("row %d skipped", row.RowNumber),
				Rows:      1,
				Errors:    []string{fmt.Sprintf("default actor %q not found", defaultActor)},
			})
			continue
		}

		date := undatedDate
		if row.HasDate {
			date = row.Date
		} else if anchored {
			warnings = append(warnings, fmt.Sprintf("row %d has no date, placed before the earliest dated row (%s)", row.RowNumber, date.Format("2006-01-02")))
		} else {
			warnings = append(warnings, fmt.Sprintf("row %d has no date, stamped with the import date", row.RowNumber))
		}
		createdAt := StampDate(date, now, idx)
		if !previous.IsZero() && !createdAt.After(previous) {
			createdAt = previous.Add(time.Millisecond)
		}
		previous = createdAt

		key := uuid.NewSHA1(importKeySpace, []byte(fmt.Sprintf("%s:%d:%d", group.Panel.ID, row.Status, row.RowNumber)))
		records = append(records, domain.PanelHistory{
			PanelID:   group.Panel.ID,
			Status:    row.Status,
			CreatedAt: createdAt,
			UserID:    actor.ID,
			ImageURL:  optional(row.ImageURL),
			Notes:     optional(row.Notes),
			ImportKey: &key,
		})
	}

	return records, warnings, failures
}

func resolveActor(dir *Directory, changedBy, defaultActor string) (domain.User, bool) {
	if name := strings.TrimSpace(changedBy); name != "" {
		if user, ok := dir.User(name); ok {
			return user, true
		}
	}
	return dir.User(defaultActor)
}

func syncRecord(panel domain.Panel, status domain.PanelStatus, actor domain.User, last domain.PanelHistory) domain.PanelHistory {
	lastKey := uuid.Nil
	if last.ImportKey != nil {
		lastKey = *last.ImportKey
	}
	key := uuid.NewSHA1(importKeySpace, []byte(fmt.Sprintf("%s:sync:%d:%s", panel.ID, status, lastKey)))
	note := SyncNote
	return domain.PanelHistory{
		PanelID:   panel.ID,
		Status:    status,
		CreatedAt: last.CreatedAt.Add(time.Millisecond),
		UserID:    actor.ID,
		Notes:     &note,
		ImportKey: &key,
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
