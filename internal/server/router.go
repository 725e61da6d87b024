package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/middleware"
	"github.com/rpattn/paneltrack/internal/panelimport"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Panels       repository.PanelRepository
	History      repository.PanelHistoryRepository
	ImportLogs   repository.ImportLogRepository
	Importer     *panelimport.Service
	DB           Pinger
	CORSOrigins  []string
	MaxFileBytes int64
	Logger       *slog.Logger
}

// NewRouter mounts the API under /api and the health check at /healthz.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Get("/healthz", healthHandler(deps.DB))

	api := chi.NewRouter()
	api.Use(middleware.StatusLoaderMiddleware(deps.Panels))
	api.Get("/statuses", handleStatuses)
	api.Get("/panels/{panelID}/history", panelHistoryHandler(deps.History))
	panelimport.NewHTTPHandler(deps.Importer, deps.ImportLogs, deps.MaxFileBytes).Routes(api)
	r.Mount("/api", api)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	return corsHandler.Handler(r)
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statusView struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

func handleStatuses(w http.ResponseWriter, r *http.Request) {
	all := domain.AllStatuses()
	out := make([]statusView, len(all))
	for i, status := range all {
		out[i] = statusView{Code: int(status), Label: status.Label()}
	}
	writeJSON(w, http.StatusOK, out)
}

type panelHistoryView struct {
	PanelID       uuid.UUID             `json:"panel_id"`
	CurrentStatus *statusView           `json:"current_status,omitempty"`
	History       []domain.PanelHistory `json:"history"`
}

func panelHistoryHandler(history repository.PanelHistoryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		panelID, err := uuid.Parse(chi.URLParam(r, "panelID"))
		if err != nil {
			http.Error(w, "invalid panel id", http.StatusBadRequest)
			return
		}

		entries, err := history.ListByPanel(r.Context(), panelID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []domain.PanelHistory{}
		}

		view := panelHistoryView{PanelID: panelID, History: entries}
		if loader := middleware.StatusLoaderFromContext(r.Context()); loader != nil {
			statuses, _ := loader.LoadAll(r.Context(), []uuid.UUID{panelID})
			if status, ok := statuses[panelID]; ok {
				view.CurrentStatus = &statusView{Code: int(status), Label: status.Label()}
			}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
