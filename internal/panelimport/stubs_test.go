package panelimport

import (
	"context"
	"sync"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, time.October, 15, 13, 45, 30, 123000000, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fixture struct {
	p1, p2 domain.Panel
	admin  domain.User
	alice  domain.User
	panels []domain.Panel
	users  []domain.User
	dir    *Directory
}

func newFixture() fixture {
	f := fixture{
		p1:    domain.Panel{ID: uuid.New(), Name: "P1", Status: domain.StatusDelivered},
		p2:    domain.Panel{ID: uuid.New(), Name: "P2", Status: domain.StatusProduced},
		admin: domain.User{ID: uuid.New(), Name: "Admin"},
		alice: domain.User{ID: uuid.New(), Name: "alice"},
	}
	f.panels = []domain.Panel{f.p1, f.p2}
	f.users = []domain.User{f.admin, f.alice}
	f.dir = NewDirectory(f.panels, f.users)
	return f
}

type stubPanelRepo struct {
	panels []domain.Panel
	err    error
}

func (s *stubPanelRepo) List(ctx context.Context) ([]domain.Panel, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.panels, nil
}

func (s *stubPanelRepo) GetStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PanelStatus, error) {
	out := make(map[uuid.UUID]domain.PanelStatus)
	for _, panel := range s.panels {
		for _, id := range ids {
			if panel.ID == id {
				out[id] = panel.Status
			}
		}
	}
	return out, nil
}

type stubUserRepo struct {
	users []domain.User
	err   error
}

func (s *stubUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

type stubHistoryRepo struct {
	mu        sync.Mutex
	batches   [][]domain.PanelHistory
	keys      map[uuid.UUID]bool
	insertErr map[uuid.UUID]error
	existing  map[uuid.UUID][]domain.PanelHistory
	listErr   error
	updates   []domain.HistoryTimestampUpdate
	updateErr map[uuid.UUID]error
}

func (s *stubHistoryRepo) InsertBatch(ctx context.Context, records []domain.PanelHistory) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) > 0 {
		if err := s.insertErr[records[0].PanelID]; err != nil {
			return 0, err
		}
	}
	if s.keys == nil {
		s.keys = make(map[uuid.UUID]bool)
	}
	var stored []domain.PanelHistory
	for _, record := range records {
		if record.ImportKey != nil {
			if s.keys[*record.ImportKey] {
				continue
			}
			s.keys[*record.ImportKey] = true
		}
		stored = append(stored, record)
	}
	s.batches = append(s.batches, records)
	return len(stored), nil
}

func (s *stubHistoryRepo) ListByPanel(ctx context.Context, panelID uuid.UUID) ([]domain.PanelHistory, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.existing[panelID], nil
}

func (s *stubHistoryRepo) UpdateTimestamp(ctx context.Context, update domain.HistoryTimestampUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[update.ID]; err != nil {
		return err
	}
	s.updates = append(s.updates, update)
	return nil
}

func (s *stubHistoryRepo) records() []domain.PanelHistory {
	var out []domain.PanelHistory
	for _, batch := range s.batches {
		out = append(out, batch...)
	}
	return out
}

type stubLogRepo struct {
	entries []domain.ImportLogEntry
}

func (s *stubLogRepo) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubLogRepo) List(ctx context.Context, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	if limit <= 0 {
		limit = len(s.entries)
	}
	var out []domain.ImportLogEntry
	for _, entry := range s.entries {
		if fileName == "" || entry.FileName == fileName {
			out = append(out, entry)
		}
	}
	if offset > len(out) {
		return []domain.ImportLogEntry{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.PanelRepository = (*stubPanelRepo)(nil)
var _ repository.UserRepository = (*stubUserRepo)(nil)
var _ repository.PanelHistoryRepository = (*stubHistoryRepo)(nil)
var _ repository.ImportLogRepository = (*stubLogRepo)(nil)
