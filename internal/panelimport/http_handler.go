package panelimport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the importer over HTTP.
type Handler struct {
	service      *Service
	logRepo      repository.ImportLogRepository
	maxFileBytes int64
}

// NewHTTPHandler wraps the service. maxFileBytes bounds multipart uploads.
func NewHTTPHandler(service *Service, logRepo repository.ImportLogRepository, maxFileBytes int64) *Handler {
	if maxFileBytes <= 0 {
		maxFileBytes = 32 << 20
	}
	return &Handler{service: service, logRepo: logRepo, maxFileBytes: maxFileBytes}
}

// Routes mounts the import endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/imports/panel-history", h.handleImport)
	r.Post("/imports/panel-history/preview", h.handlePreview)
	r.Get("/imports/panel-history/template", h.handleTemplate)
	r.Get("/imports/logs", h.handleListLogs)
}

type streamEvent struct {
	Type     string    `json:"type"`
	Progress *Progress `json:"progress,omitempty"`
	Result   *Result   `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	mode := domain.ImportMode(strings.ToLower(strings.TrimSpace(r.FormValue("mode"))))
	if mode == "" {
		mode = domain.ImportModeInsert
	}
	if mode != domain.ImportModeInsert && mode != domain.ImportModeUpdate {
		http.Error(w, fmt.Sprintf("invalid mode %q", mode), http.StatusBadRequest)
		return
	}
	req.Mode = mode

	stream, _ := strconv.ParseBool(r.FormValue("stream"))
	if !stream {
		result, err := h.service.Import(r.Context(), req)
		if err != nil && !errors.Is(err, context.Canceled) {
			http.Error(w, err.Error(), statusForError(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	send := func(event streamEvent) {
		_ = enc.Encode(event)
		if flusher != nil {
			flusher.Flush()
		}
	}

	req.Progress = func(p Progress) {
		send(streamEvent{Type: "progress", Progress: &p})
	}

	result, err := h.service.Import(r.Context(), req)
	if err != nil && !errors.Is(err, context.Canceled) {
		send(streamEvent{Type: "error", Error: err.Error()})
		return
	}
	send(streamEvent{Type: "result", Result: &result})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.service.Preview(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	payload, err := BuildTemplate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="panel_history_template.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if h.logRepo == nil {
		http.Error(w, "import logs unavailable", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	logs, err := h.logRepo.List(r.Context(), strings.TrimSpace(query.Get("file")), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return Request{}, false
		}
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return Request{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return Request{}, false
	}

	return Request{
		FileName: header.Filename,
		Data:     bytes.NewReader(data),
	}, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrDefaultActorMissing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
