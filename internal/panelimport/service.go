package panelimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
	"github.com/rpattn/paneltrack/internal/panelloader"
	"github.com/rpattn/paneltrack/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrDirectoryUnavailable aborts a run when the panel or user directory
	// cannot be fetched.
	ErrDirectoryUnavailable = errors.New("reference directory unavailable")
	// ErrDefaultActorMissing aborts a run when the configured default actor
	// is not in the user directory.
	ErrDefaultActorMissing = errors.New("default actor not found")
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Phases reported through progress events.
const (
	PhaseValidating = "validating"
	PhaseWriting    = "writing"
	PhaseUpdating   = "updating"
	PhaseDone       = "done"
)

// Options tunes a Service.
type Options struct {
	DefaultActor      string
	ProgressEvery     int
	UpdateConcurrency int
	MaxRows           int
	MaxFileBytes      int64
}

// Service runs panel history imports.
type Service struct {
	panels  repository.PanelRepository
	users   repository.UserRepository
	history repository.PanelHistoryRepository
	logRepo repository.ImportLogRepository
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new import service.
func NewService(
	panels repository.PanelRepository,
	users repository.UserRepository,
	history repository.PanelHistoryRepository,
	logRepo repository.ImportLogRepository,
	opts Options,
	logger *slog.Logger,
) *Service {
	if strings.TrimSpace(opts.DefaultActor) == "" {
		opts.DefaultActor = "admin"
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	if opts.UpdateConcurrency <= 0 {
		opts.UpdateConcurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		panels:  panels,
		users:   users,
		history: history,
		logRepo: logRepo,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// ProgressFunc receives progress events while a run is executing.
type ProgressFunc func(Progress)

// Progress is one progress event. Outcomes holds only the outcomes
// produced since the previous event.
type Progress struct {
	Phase     string                `json:"phase"`
	Percent   int                   `json:"percent"`
	Processed int                   `json:"processed"`
	Total     int                   `json:"total"`
	Outcomes  []domain.PanelOutcome `json:"outcomes,omitempty"`
}

// Request describes the import input.
type Request struct {
	FileName string
	Mode     domain.ImportMode
	Data     io.Reader
	Progress ProgressFunc
}

// RowVerdict ties a validation verdict to its source row.
type RowVerdict struct {
	RowNumber int    `json:"row_number"`
	PanelName string `json:"panel_name"`
	domain.ValidationVerdict
}

// Result is the final report of a run.
type Result struct {
	FileName    string                `json:"file_name"`
	Mode        domain.ImportMode     `json:"mode"`
	TotalRows   int                   `json:"total_rows"`
	ValidRows   int                   `json:"valid_rows"`
	InvalidRows int                   `json:"invalid_rows"`
	Panels      int                   `json:"panels"`
	Inserted    int                   `json:"inserted"`
	Duplicates  int                   `json:"duplicates"`
	Synced      int                   `json:"synced"`
	Updated     int                   `json:"updated"`
	FailedRows  int                   `json:"failed_rows"`
	Successful  int                   `json:"successful"`
	Failed      int                   `json:"failed"`
	Cancelled   bool                  `json:"cancelled"`
	Summary     string                `json:"summary"`
	Verdicts    []RowVerdict          `json:"verdicts"`
	Outcomes    []domain.PanelOutcome `json:"outcomes"`
}

type run struct {
	req      Request
	rows     []domain.ImportRow
	dir      *Directory
	groups   []PanelGroup
	result   Result
	lastSent int
}

// Import validates the file and writes or re-dates panel history. Only
// pre-flight failures are returned as errors; per-row and per-panel
// failures are collected in the result. A cancelled context stops the run
// between panel groups and returns the partial result with the context error.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	if req.Mode == "" {
		req.Mode = domain.ImportModeInsert
	}
	if req.Mode != domain.ImportModeInsert && req.Mode != domain.ImportModeUpdate {
		return Result{}, fmt.Errorf("unknown import mode %q", req.Mode)
	}

	r, err := s.prepare(ctx, req)
	if err != nil {
		return r.result, err
	}

	s.logger.Info("panel history import started",
		"file", req.FileName,
		"mode", req.Mode,
		"rows", r.result.TotalRows,
		"valid_rows", r.result.ValidRows,
		"panels", len(r.groups),
	)

	var runErr error
	switch req.Mode {
	case domain.ImportModeUpdate:
		runErr = s.runUpdate(ctx, r)
	default:
		runErr = s.runInsert(ctx, r)
	}

	s.finish(r)
	s.logger.Info("panel history import finished",
		"file", req.FileName,
		"summary", r.result.Summary,
		"cancelled", r.result.Cancelled,
	)
	return r.result, runErr
}

// Preview validates and groups the file without writing anything.
func (s *Service) Preview(ctx context.Context, req Request) (Result, error) {
	if req.Mode == "" {
		req.Mode = domain.ImportModeInsert
	}
	r, err := s.prepare(ctx, req)
	if err != nil {
		return r.result, err
	}
	for _, group := range r.groups {
		r.result.Outcomes = append(r.result.Outcomes, domain.PanelOutcome{
			PanelName: group.Panel.Name,
			Success:   true,
			Message:   fmt.Sprintf("%d rows after removing repeated statuses", len(group.Rows)),
			Rows:      len(group.Rows),
		})
	}
	r.result.Successful = r.result.ValidRows
	r.result.Failed = r.result.InvalidRows
	r.result.Summary = fmt.Sprintf("%d valid, %d invalid", r.result.ValidRows, r.result.InvalidRows)
	return r.result, nil
}

// prepare reads the file, fetches the directories, resolves the default
// actor and runs the validating phase.
func (s *Service) prepare(ctx context.Context, req Request) (*run, error) {
	r := &run{
		req: req,
		result: Result{
			FileName: req.FileName,
			Mode:     req.Mode,
			Verdicts: []RowVerdict{},
			Outcomes: []domain.PanelOutcome{},
		},
	}

	if req.Data == nil {
		return r, errors.New("data reader is required")
	}

	payload, err := s.readPayload(req.Data)
	if err != nil {
		return r, err
	}

	rows, err := ReadRows(req.FileName, payload, s.opts.MaxRows)
	if err != nil {
		return r, err
	}
	r.rows = rows
	r.result.TotalRows = len(rows)

	panels, err := s.panels.List(ctx)
	if err != nil {
		return r, fmt.Errorf("%w: panels: %v", ErrDirectoryUnavailable, err)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return r, fmt.Errorf("%w: users: %v", ErrDirectoryUnavailable, err)
	}
	r.dir = NewDirectory(panels, users)
	if _, ok := r.dir.User(s.opts.DefaultActor); !ok {
		return r, fmt.Errorf("%w: %q", ErrDefaultActorMissing, s.opts.DefaultActor)
	}

	s.emit(r, PhaseValidating, 0, len(rows))

	valid := make([]domain.ImportRow, 0, len(rows))
	for _, row := range rows {
		verdict := ValidateRow(row, r.dir)
		r.result.Verdicts = append(r.result.Verdicts, RowVerdict{
			RowNumber:         row.RowNumber,
			PanelName:         row.PanelName,
			ValidationVerdict: verdict,
		})
		if !verdict.IsValid {
			r.result.InvalidRows++
			rowNumber := row.RowNumber
			s.recordLog(ctx, domain.ImportLogEntry{
				FileName:     req.FileName,
				PanelName:    row.PanelName,
				RowNumber:    &rowNumber,
				ErrorMessage: strings.Join(verdict.Errors, "; "),
			})
			continue
		}
		valid = append(valid, row)
	}
	r.result.ValidRows = len(valid)

	r.groups = GroupRows(valid, r.dir)
	r.result.Panels = len(r.groups)
	return r, nil
}

func (s *Service) runInsert(ctx context.Context, r *run) error {
	writer := NewWriter(s.history, s.now, s.logger)

	ids := make([]uuid.UUID, len(r.groups))
	for i, group := range r.groups {
		ids[i] = group.Panel.ID
	}
	statuses, failures := panelloader.NewStatusLoader(s.panels).LoadAll(ctx, ids)
	for id, err := range failures {
		s.logger.Warn("live status unavailable, skipping synchronization", "panel_id", id, "error", err)
	}

	total := len(r.groups)
	s.emit(r, PhaseWriting, 0, total)
	for i, group := range r.groups {
		if err := ctx.Err(); err != nil {
			r.result.Cancelled = true
			s.emit(r, PhaseWriting, i, total)
			return err
		}

		live, ok := statuses[group.Panel.ID]
		res := writer.WritePanel(ctx, WriteInput{
			Group:         group,
			Directory:     r.dir,
			DefaultActor:  s.opts.DefaultActor,
			LiveStatus:    live,
			HasLiveStatus: ok,
		})
		r.result.Inserted += res.Inserted
		r.result.Duplicates += res.Duplicates
		r.result.FailedRows += res.Failed
		if res.Synced {
			r.result.Synced++
		}
		s.collect(ctx, r, res.Outcomes)

		if processed := i + 1; processed%s.opts.ProgressEvery == 0 && processed < total {
			s.emit(r, PhaseWriting, processed, total)
		}
	}
	return nil
}

func (s *Service) runUpdate(ctx context.Context, r *run) error {
	reconciler := NewReconciler(s.history, s.now, s.opts.UpdateConcurrency, s.logger)

	total := len(r.groups)
	s.emit(r, PhaseUpdating, 0, total)
	for i, group := range r.groups {
		if err := ctx.Err(); err != nil {
			r.result.Cancelled = true
			s.emit(r, PhaseUpdating, i, total)
			return err
		}

		res := reconciler.ReconcilePanel(ctx, group, r.dir, s.opts.DefaultActor)
		r.result.Updated += res.Updated
		r.result.FailedRows += res.Failed
		s.collect(ctx, r, res.Outcomes)

		if processed := i + 1; processed%s.opts.ProgressEvery == 0 && processed < total {
			s.emit(r, PhaseUpdating, processed, total)
		}
	}
	return nil
}

func (s *Service) collect(ctx context.Context, r *run, outcomes []domain.PanelOutcome) {
	for _, outcome := range outcomes {
		r.result.Outcomes = append(r.result.Outcomes, outcome)
		if outcome.Success {
			r.result.Successful++
			continue
		}
		r.result.Failed++
		message := outcome.Message
		if len(outcome.Errors) > 0 {
			message += ": " + strings.Join(outcome.Errors, "; ")
		}
		s.recordLog(ctx, domain.ImportLogEntry{
			FileName:     r.req.FileName,
			PanelName:    outcome.PanelName,
			ErrorMessage: message,
		})
	}
}

func (s *Service) finish(r *run) {
	r.result.Failed += r.result.InvalidRows
	r.result.Summary = fmt.Sprintf("%d successful, %d failed", r.result.Successful, r.result.Failed)
	if r.result.Cancelled {
		r.result.Summary += " (cancelled)"
		return
	}
	s.emit(r, PhaseDone, len(r.groups), len(r.groups))
}

// emit sends a progress event carrying the outcomes not yet reported.
func (s *Service) emit(r *run, phase string, processed, total int) {
	if r.req.Progress == nil {
		return
	}
	percent := 100
	if total > 0 {
		percent = processed * 100 / total
	}
	if phase != PhaseDone && percent == 100 && processed < total {
		percent = 99
	}
	fresh := r.result.Outcomes[r.lastSent:]
	r.lastSent = len(r.result.Outcomes)
	r.req.Progress(Progress{
		Phase:     phase,
		Percent:   percent,
		Processed: processed,
		Total:     total,
		Outcomes:  append([]domain.PanelOutcome(nil), fresh...),
	})
}

func (s *Service) readPayload(data io.Reader) ([]byte, error) {
	if s.opts.MaxFileBytes <= 0 {
		payload, err := io.ReadAll(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return payload, nil
	}
	payload, err := io.ReadAll(io.LimitReader(data, s.opts.MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(payload)) > s.opts.MaxFileBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.opts.MaxFileBytes)
	}
	return payload, nil
}

func (s *Service) recordLog(ctx context.Context, entry domain.ImportLogEntry) {
	if s.logRepo == nil {
		return
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record import log", "file", entry.FileName, "error", err)
	}
}
