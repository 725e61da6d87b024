package panelimport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReconcileResult summarizes the re-dating of one panel.
type ReconcileResult struct {
	Outcomes  []domain.PanelOutcome
	Updated   int
	Unchanged int
	Unmatched int
	Failed    int
}

type historyKey struct {
	status domain.PanelStatus
	userID uuid.UUID
}

// Reconciler re-dates history rows that were stored without reliable
// timestamps. It never creates rows.
type Reconciler struct {
	history     repository.PanelHistoryRepository
	now         func() time.Time
	concurrency int
	logger      *slog.Logger
}

// NewReconciler creates a reconciler issuing at most concurrency updates at
// a time for one panel.
func NewReconciler(history repository.PanelHistoryRepository, now func() time.Time, concurrency int, logger *slog.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{history: history, now: now, concurrency: concurrency, logger: logger}
}

// ReconcilePanel matches import rows to stored rows by (status, actor) and
// rewrites the timestamp of every match that is off by more than a second.
func (r *Reconciler) ReconcilePanel(ctx context.Context, group PanelGroup, dir *Directory, defaultActor string) ReconcileResult {
	var result ReconcileResult
	panel := group.Panel

	existing, err := r.history.ListByPanel(ctx, panel.ID)
	if err != nil {
		r.logger.Error("failed to load panel history", "panel", panel.Name, "error", err)
		result.Failed = len(group.Rows)
		result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
			PanelName: panel.Name,
			Success:   false,
			Message:   "failed to load existing history",
			Rows:      len(group.Rows),
			Errors:    []string{err.Error()},
		})
		return result
	}

	// Only the first stored row per (status, actor) is re-dated.
	byKey := make(map[historyKey]domain.PanelHistory, len(existing))
	for _, entry := range existing {
		key := historyKey{status: entry.Status, userID: entry.UserID}
		if _, seen := byKey[key]; !seen {
			byKey[key] = entry
		}
	}

	now := r.now()
	var updates []domain.HistoryTimestampUpdate
	// A stored row is re-dated by at most one import row, the earliest.
	claimed := make(map[uuid.UUID]bool)
	for idx, row := range group.Rows {
		if !row.HasDate {
			result.Unchanged++
			continue
		}
		actor, ok := resolveActor(dir, row.ChangedBy, defaultActor)
		if !ok {
			result.Unmatched++
			continue
		}
		match, ok := byKey[historyKey{status: row.Status, userID: actor.ID}]
		if !ok || claimed[match.ID] {
			result.Unmatched++
			continue
		}
		claimed[match.ID] = true
		createdAt := StampDate(row.Date, now, idx)
		if absDuration(createdAt.Sub(match.CreatedAt)) <= time.Second {
			result.Unchanged++
			continue
		}
		updates = append(updates, domain.HistoryTimestampUpdate{ID: match.ID, CreatedAt: createdAt})
	}

	if len(updates) == 0 {
		result.Outcomes = append(result.Outcomes, domain.PanelOutcome{
			PanelName: panel.Name,
			Success:   true,
			Message:   fmt.Sprintf("no timestamps to update (%d unmatched)", result.Unmatched),
		})
		return result
	}

	errs := make([]error, len(updates))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, update := range updates {
		i, update := i, update
		g.Go(func() error {
			errs[i] = r.history.UpdateTimestamp(ctx, update)
			return nil
		})
	}
	_ = g.Wait()

	var messages []string
	for _, err := range errs {
		if err != nil {
			result.Failed++
			messages = append(messages, err.Error())
			continue
		}
		result.Updated++
	}

	outcome := domain.PanelOutcome{
		PanelName: panel.Name,
		Success:   result.Failed == 0,
		Message:   fmt.Sprintf("updated %d of %d timestamps", result.Updated, len(updates)),
		Rows:      len(updates),
		Errors:    messages,
	}
	if result.Failed > 0 {
		r.logger.Warn("some timestamp updates failed", "panel", panel.Name, "failed", result.Failed)
	}
	result.Outcomes = append(result.Outcomes, outcome)
	return result
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
