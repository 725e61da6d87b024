package panelimport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(f serviceFixture) http.Handler {
	r := chi.NewRouter()
	NewHTTPHandler(f.svc, f.logs, 0).Routes(r)
	return r
}

func uploadRequest(t *testing.T, path string, fields map[string]string, data string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("file", "history.csv")
	if err != nil {
		t.Fatalf("failed to create file part: %v", err)
	}
	if _, err := part.Write([]byte(data)); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleImportReturnsResult(t *testing.T) {
	f := newServiceFixture(Options{})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, uploadRequest(t, "/imports/panel-history", map[string]string{"mode": "insert"}, historyCSV))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Inserted != 3 || result.Summary != "3 successful, 1 failed" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHandleImportStreamsProgress(t *testing.T) {
	f := newServiceFixture(Options{})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, uploadRequest(t, "/imports/panel-history", map[string]string{"stream": "true"}, historyCSV))

	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var events []streamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var event streamEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("invalid event line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	if len(events) < 2 {
		t.Fatalf("expected progress and result events, got %d", len(events))
	}
	if events[0].Type != "progress" {
		t.Fatalf("expected first event to be progress, got %q", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != "result" || last.Result == nil || last.Result.Inserted != 3 {
		t.Fatalf("unexpected final event %+v", last)
	}
}

func TestHandleImportRejectsInvalidMode(t *testing.T) {
	f := newServiceFixture(Options{})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, uploadRequest(t, "/imports/panel-history", map[string]string{"mode": "merge"}, historyCSV))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleImportMapsDefaultActorError(t *testing.T) {
	f := newServiceFixture(Options{DefaultActor: "ghost"})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, uploadRequest(t, "/imports/panel-history", nil, historyCSV))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandlePreviewReturnsVerdicts(t *testing.T) {
	f := newServiceFixture(Options{})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, uploadRequest(t, "/imports/panel-history/preview", nil, historyCSV))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(result.Verdicts) != 5 || result.InvalidRows != 1 {
		t.Fatalf("unexpected preview %+v", result)
	}
	if len(f.history.batches) != 0 {
		t.Fatalf("preview must not write history")
	}
}

func TestHandleTemplateServesWorkbook(t *testing.T) {
	f := newServiceFixture(Options{})
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports/panel-history/template", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows, err := ReadRows("template.xlsx", rec.Body.Bytes(), 0)
	if err != nil {
		t.Fatalf("template not readable: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("expected sample rows in template")
	}
}

func TestHandleListLogsFiltersByFile(t *testing.T) {
	f := newServiceFixture(Options{})
	f.logs.entries = []domain.ImportLogEntry{
		{FileName: "a.csv", PanelName: "P1", ErrorMessage: "bad"},
		{FileName: "b.csv", PanelName: "P2", ErrorMessage: "worse"},
	}
	rec := httptest.NewRecorder()

	newTestRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports/logs?file=b.csv", nil))

	var logs []domain.ImportLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(logs) != 1 || logs[0].PanelName != "P2" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}
