package panelloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// StatusLoader batches live status lookups for panels into single queries.
type StatusLoader struct {
	Loader *dataloader.Loader
}

func NewStatusLoader(repo repository.PanelRepository) *StatusLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid panel id %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		statuses, err := repo.GetStatuses(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Results must line up with keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if status, ok := statuses[id]; ok {
				results[i] = &dataloader.Result{Data: status}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("panel %s not found", id)}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &StatusLoader{Loader: loader}
}

// LoadAll resolves the live status of every id. Panels that failed to load
// are reported in the error map instead of the status map.
func (l *StatusLoader) LoadAll(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PanelStatus, map[uuid.UUID]error) {
	statuses := make(map[uuid.UUID]domain.PanelStatus, len(ids))
	failures := make(map[uuid.UUID]error)
	if len(ids) == 0 {
		return statuses, failures
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	data, errs := l.Loader.LoadMany(ctx, dataloader.NewKeysFromStrings(raw))()
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			failures[id] = errs[i]
			continue
		}
		if i >= len(data) {
			failures[id] = fmt.Errorf("panel %s not loaded", id)
			continue
		}
		status, ok := data[i].(domain.PanelStatus)
		if !ok {
			failures[id] = fmt.Errorf("unexpected status payload for panel %s", id)
			continue
		}
		statuses[id] = status
	}
	return statuses, failures
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
