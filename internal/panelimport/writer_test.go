package panelimport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/google/uuid"
)

func TestWritePanelAssignsIncreasingTimestamps(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced", RawDate: "01/10/2024"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Produced", RawDate: "01/11/2024"},
		{RowNumber: 4, PanelName: "P1", StatusText: "Delivered", RawDate: "01/12/2024"},
	}, f.dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{
		Group:        group,
		Directory:    f.dir,
		DefaultActor: "admin",
	})

	if res.Inserted != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	records := repo.records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Status != domain.StatusProduced || records[1].Status != domain.StatusDelivered {
		t.Fatalf("unexpected statuses %d, %d", records[0].Status, records[1].Status)
	}
	if !records[1].CreatedAt.After(records[0].CreatedAt) {
		t.Fatalf("timestamps not increasing: %s then %s", records[0].CreatedAt, records[1].CreatedAt)
	}
	if records[0].CreatedAt.Day() != 10 || records[1].CreatedAt.Day() != 12 {
		t.Fatalf("calendar dates not preserved: %s, %s", records[0].CreatedAt, records[1].CreatedAt)
	}
	if len(repo.batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(repo.batches))
	}
}

func TestWritePanelSameDayRowsKeepSpreadsheetOrder(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	statuses := []string{"Issued For Production", "Produced", "Procced for Delivery", "Delivered", "Installed"}
	var rows []domain.ImportRow
	for i, status := range statuses {
		rows = append(rows, domain.ImportRow{RowNumber: i + 2, PanelName: "P1", StatusText: status, RawDate: "2024-06-01"})
	}
	// An undated row sorts first and takes the earliest dated row's day.
	rows = append(rows, domain.ImportRow{RowNumber: 7, PanelName: "P1", StatusText: "Broken at Site"})

	group := GroupRows(rows, f.dir)[0]
	writer.WritePanel(context.Background(), WriteInput{Group: group, Directory: f.dir, DefaultActor: "admin"})

	records := repo.records()
	if len(records) != len(rows) {
		t.Fatalf("expected %d records, got %d", len(rows), len(records))
	}
	for i := 1; i < len(records); i++ {
		if !records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Fatalf("record %d at %s is not after %s", i, records[i].CreatedAt, records[i-1].CreatedAt)
		}
	}
	if records[0].Status != domain.StatusBrokenAtSite {
		t.Fatalf("expected undated row first, got %s", records[0].Status)
	}
	for i, status := range statuses {
		if records[i+1].Status != domain.StatusFromText(status) {
			t.Fatalf("record %d has status %s, want %s", i+1, records[i+1].Status, status)
		}
	}
	if records[3].Status != domain.StatusProceedForDelivery {
		t.Fatalf("misspelled status written as %d, want %d", records[3].Status, domain.StatusProceedForDelivery)
	}
	for i, record := range records {
		if got := record.CreatedAt.Format("2006-01-02"); got != "2024-06-01" {
			t.Fatalf("record %d dated %s, want 2024-06-01", i, got)
		}
	}
}

func TestWritePanelUndatedRowKeepsOtherDates(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced", RawDate: "2024-01-10"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered", RawDate: "2024-01-12"},
		{RowNumber: 4, PanelName: "P1", StatusText: "Inspected"},
		{RowNumber: 5, PanelName: "P1", StatusText: "Installed", RawDate: "2024-03-01"},
	}, f.dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{Group: group, Directory: f.dir, DefaultActor: "admin"})

	records := repo.records()
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	want := []struct {
		status domain.PanelStatus
		day    string
	}{
		{domain.StatusInspected, "2024-01-10"},
		{domain.StatusProduced, "2024-01-10"},
		{domain.StatusDelivered, "2024-01-12"},
		{domain.StatusInstalled, "2024-03-01"},
	}
	for i, w := range want {
		if records[i].Status != w.status {
			t.Fatalf("record %d has status %s, want %s", i, records[i].Status, w.status)
		}
		if got := records[i].CreatedAt.Format("2006-01-02"); got != w.day {
			t.Fatalf("record %d dated %s, want %s", i, got, w.day)
		}
	}
	if !records[0].CreatedAt.Before(records[1].CreatedAt) {
		t.Fatalf("undated row at %s is not before %s", records[0].CreatedAt, records[1].CreatedAt)
	}

	if len(res.Outcomes) != 1 || len(res.Outcomes[0].Warnings) != 1 {
		t.Fatalf("expected one placement warning, got %+v", res.Outcomes)
	}
	if !strings.Contains(res.Outcomes[0].Warnings[0], "row 4") {
		t.Fatalf("warning does not name the row: %q", res.Outcomes[0].Warnings[0])
	}
}

func TestBuildRecordsAllUndatedUseImportDate(t *testing.T) {
	f := newFixture()
	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered"},
	}, f.dir)[0]

	records, warnings, failures := BuildRecords(group, f.dir, "admin", fixedNow)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures %+v", failures)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected a warning per undated row, got %v", warnings)
	}
	for i, record := range records {
		if got := record.CreatedAt.Format("2006-01-02"); got != "2026-10-15" {
			t.Fatalf("record %d dated %s, want the import date", i, got)
		}
	}
}

func TestWritePanelDefaultsActorToAdmin(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced", ChangedBy: ""},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered", ChangedBy: "alice"},
	}, f.dir)[0]
	writer.WritePanel(context.Background(), WriteInput{Group: group, Directory: f.dir, DefaultActor: "admin"})

	records := repo.records()
	if records[0].UserID != f.admin.ID {
		t.Fatalf("expected admin for empty changed_by, got %s", records[0].UserID)
	}
	if records[1].UserID != f.alice.ID {
		t.Fatalf("expected alice, got %s", records[1].UserID)
	}
}

func TestWritePanelAppendsSynchronizationRecord(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced", RawDate: "2024-01-01", ChangedBy: "alice"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered", RawDate: "2024-01-02", ChangedBy: "alice"},
	}, f.dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{
		Group:         group,
		Directory:     f.dir,
		DefaultActor:  "admin",
		LiveStatus:    domain.StatusInstalled,
		HasLiveStatus: true,
	})

	if !res.Synced {
		t.Fatalf("expected synchronization, outcomes: %+v", res.Outcomes)
	}
	records := repo.records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	sync := records[2]
	if int(sync.Status) != 6 || sync.UserID != f.admin.ID {
		t.Fatalf("unexpected sync record %+v", sync)
	}
	if sync.Notes == nil || *sync.Notes != SyncNote {
		t.Fatalf("expected sync note, got %v", sync.Notes)
	}
	if !sync.CreatedAt.After(records[1].CreatedAt) {
		t.Fatalf("sync record must be the last entry")
	}
}

func TestWritePanelSkipsSynchronizationWhenStatusMatches(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Delivered"},
	}, f.dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{
		Group:         group,
		Directory:     f.dir,
		DefaultActor:  "admin",
		LiveStatus:    domain.StatusDelivered,
		HasLiveStatus: true,
	})

	if res.Synced || len(repo.records()) != 1 {
		t.Fatalf("did not expect a sync record, got %d records", len(repo.records()))
	}
}

func TestWritePanelReportsBatchFailureOnce(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{insertErr: map[uuid.UUID]error{}}
	repo.insertErr[f.p1.ID] = errors.New("connection reset")
	writer := NewWriter(repo, fixedClock, nil)

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered"},
	}, f.dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{
		Group:         group,
		Directory:     f.dir,
		DefaultActor:  "admin",
		LiveStatus:    domain.StatusInstalled,
		HasLiveStatus: true,
	})

	if res.Failed != 2 || res.Inserted != 0 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Success || res.Outcomes[0].Rows != 2 {
		t.Fatalf("expected one failed outcome covering 2 rows, got %+v", res.Outcomes)
	}
	if res.Synced {
		t.Fatalf("sync must not run after a failed batch")
	}
}

func TestWritePanelDropsRowsWithoutResolvableActor(t *testing.T) {
	f := newFixture()
	repo := &stubHistoryRepo{}
	writer := NewWriter(repo, fixedClock, nil)
	dir := NewDirectory(f.panels, []domain.User{f.alice})

	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered", ChangedBy: "alice"},
	}, dir)[0]

	res := writer.WritePanel(context.Background(), WriteInput{Group: group, Directory: dir, DefaultActor: "admin"})

	if res.Failed != 1 || res.Inserted != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	records := repo.records()
	if len(records) != 1 || records[0].UserID != f.alice.ID {
		t.Fatalf("expected only alice's row, got %+v", records)
	}
}

func TestBuildRecordsKeysAreDeterministic(t *testing.T) {
	f := newFixture()
	group := GroupRows([]domain.ImportRow{
		{RowNumber: 2, PanelName: "P1", StatusText: "Produced"},
		{RowNumber: 3, PanelName: "P1", StatusText: "Delivered"},
	}, f.dir)[0]

	first, _, _ := BuildRecords(group, f.dir, "admin", fixedNow)
	second, _, _ := BuildRecords(group, f.dir, "admin", fixedNow.Add(time.Hour))

	for i := range first {
		if *first[i].ImportKey != *second[i].ImportKey {
			t.Fatalf("import key %d changed between runs", i)
		}
	}
	if *first[0].ImportKey == *first[1].ImportKey {
		t.Fatalf("distinct rows must have distinct keys")
	}
}
