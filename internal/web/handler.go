package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"

	"forcefocus/internal/config"
	"forcefocus/internal/input"
	"forcefocus/internal/models"
	"forcefocus/internal/monitor"
	"forcefocus/internal/remote"
	"forcefocus/internal/session"
	"forcefocus/internal/visibility"
	"forcefocus/pkg/utils"
	"forcefocus/pkg/window"
)

// Sessions is the session lifecycle the API drives
type Sessions interface {
	Start(ctx context.Context, taskID *string, goalDuration int) (models.ActiveSessionInfo, error)
	End(ctx context.Context, evaluationScore int) error
	Active() (models.ActiveSessionInfo, bool)
}

// ScoreSource reports the monitor state
type ScoreSource interface {
	Status() monitor.Status
}

// InputSource supplies input counters
type InputSource interface {
	Snapshot() input.Snapshot
}

// FocusProbe returns the focused window
type FocusProbe interface {
	GetFocusedWindow() (*window.ActiveWindowSnapshot, error)
}

// VisibleLister returns the windows the user can actually see
type VisibleLister interface {
	VisibleWindows() ([]visibility.Entry, error)
}

// FeedbackSender forwards intervention feedback to the backend
type FeedbackSender interface {
	SubmitFeedback(ctx context.Context, eventID string, feedback remote.FeedbackType) error
}

// ReportGenerator builds intervention reports
type ReportGenerator interface {
	GenerateReport(periodType string) (*models.Report, error)
}

// InterventionStore reads recorded interventions and monitor errors.
// Lookups return nil without error when the record does not exist.
type InterventionStore interface {
	GetInterventionByID(id uint) (*models.InterventionEvent, error)
	GetInterventionsBySession(sessionID string) ([]*models.InterventionEvent, error)
	GetLatestIntervention() (*models.InterventionEvent, error)
	GetRecentErrors(limit int) ([]*models.ErrorLog, error)
}

// Deps are the components behind the API. Feedback and Stream may be nil.
// Processes defaults to utils.ListProcesses.
type Deps struct {
	Config        *config.Config
	Sessions      Sessions
	Monitor       ScoreSource
	Inputs        InputSource
	Focus         FocusProbe
	Visible       VisibleLister
	Feedback      FeedbackSender
	Reports       ReportGenerator
	Interventions InterventionStore
	Processes     func() ([]utils.ProcessSummary, error)
	Stream        http.Handler
}

const (
	defaultErrorLimit = 20
	maxErrorLimit     = 100
)

// Handler serves the front-end command surface
type Handler struct {
	deps      Deps
	startedAt time.Time
}

// NewHandler creates a handler
func NewHandler(deps Deps) *Handler {
	if deps.Processes == nil {
		deps.Processes = utils.ListProcesses
	}
	return &Handler{deps: deps, startedAt: time.Now()}
}

// Routes returns the configured router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/score", h.handleScore)
		r.Get("/windows", h.handleWindows)
		r.Get("/window/active", h.handleActiveWindow)
		r.Get("/input", h.handleInput)
		r.Get("/processes", h.handleProcesses)
		r.Post("/sessions/start", h.handleStartSession)
		r.Post("/sessions/end", h.handleEndSession)
		r.Get("/sessions/current/interventions", h.handleSessionInterventions)
		r.Post("/feedback", h.handleFeedback)
		r.Get("/report", h.handleReport)
		r.Get("/errors", h.handleErrors)
	})

	if h.deps.Stream != nil {
		r.Handle("/ws", h.deps.Stream)
	}

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config

	status := map[string]interface{}{
		"running":        true,
		"uptime":         utils.FormatDuration(time.Since(h.startedAt)),
		"poll_interval":  cfg.Monitor.PollInterval.String(),
		"database_path":  cfg.Database.Path,
		"remote_enabled": cfg.Remote.Enabled,
	}

	if info, ok := h.deps.Sessions.Active(); ok {
		status["active_session"] = info
	}
	if h.deps.Monitor != nil {
		status["monitor"] = h.deps.Monitor.Status()
	}
	if h.deps.Interventions != nil {
		if latest, err := h.deps.Interventions.GetLatestIntervention(); err != nil {
			log.Printf("Failed to load latest intervention: %v", err)
		} else if latest != nil {
			status["last_intervention"] = latest
		}
	}

	if hostInfo, err := host.Info(); err == nil {
		status["host"] = map[string]interface{}{
			"hostname": hostInfo.Hostname,
			"os":       hostInfo.OS,
			"platform": hostInfo.Platform,
			"uptime":   hostInfo.Uptime,
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	if h.deps.Monitor == nil {
		respondError(w, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Monitor.Status())
}

func (h *Handler) handleWindows(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Visible.VisibleWindows()
	if err != nil {
		if errors.Is(err, window.ErrListUnsupported) {
			respondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list windows: %v", err))
		return
	}
	if entries == nil {
		entries = []visibility.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleActiveWindow(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Focus.GetFocusedWindow()
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get focused window: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Inputs.Snapshot()
	now := time.Now()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"meaningful_events":     snap.MeaningfulEvents,
		"last_meaningful_input": nullableTime(snap.LastMeaningfulInput),
		"last_mouse_move":       nullableTime(snap.LastMouseMove),
		"idle_seconds":          int64(snap.Idle(now) / time.Second),
		"activity_vector":       snap.ActivityVector(),
	})
}

func (h *Handler) handleProcesses(w http.ResponseWriter, r *http.Request) {
	procs, err := h.deps.Processes()
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list processes: %v", err))
		return
	}
	if procs == nil {
		procs = []utils.ProcessSummary{}
	}
	respondJSON(w, http.StatusOK, procs)
}

type startSessionRequest struct {
	TaskID       *string `json:"task_id"`
	GoalDuration int     `json:"goal_duration"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.GoalDuration < 0 {
		respondError(w, http.StatusBadRequest, "goal_duration cannot be negative")
		return
	}

	info, err := h.deps.Sessions.Start(r.Context(), req.TaskID, req.GoalDuration)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

type endSessionRequest struct {
	EvaluationScore int `json:"user_evaluation_score"`
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.deps.Sessions.End(r.Context(), req.EvaluationScore); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (h *Handler) handleSessionInterventions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Interventions == nil {
		respondError(w, http.StatusServiceUnavailable, "intervention store unavailable")
		return
	}
	info, ok := h.deps.Sessions.Active()
	if !ok {
		respondSessionError(w, session.ErrNoActiveSession)
		return
	}

	events, err := h.deps.Interventions.GetInterventionsBySession(info.SessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load interventions: %v", err))
		return
	}
	if events == nil {
		events = []*models.InterventionEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAlreadyActive), errors.Is(err, session.ErrNoActiveSession):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Session operation failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// EventID accepts both 42 and "42"
type feedbackRequest struct {
	EventID      json.Number         `json:"event_id"`
	FeedbackType remote.FeedbackType `json:"feedback_type"`
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := strconv.ParseUint(req.EventID.String(), 10, 64)
	if err != nil || id == 0 || !req.FeedbackType.Valid() {
		respondError(w, http.StatusBadRequest, "a numeric event_id and a valid feedback_type are required")
		return
	}
	if h.deps.Feedback == nil {
		respondError(w, http.StatusServiceUnavailable, "remote service disabled")
		return
	}

	if h.deps.Interventions != nil {
		event, err := h.deps.Interventions.GetInterventionByID(uint(id))
		if err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load intervention: %v", err))
			return
		}
		if event == nil {
			respondError(w, http.StatusNotFound, fmt.Sprintf("intervention %d not found", id))
			return
		}
	}

	if err := h.deps.Feedback.SubmitFeedback(r.Context(), req.EventID.String(), req.FeedbackType); err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to submit feedback: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"submitted": true})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.deps.Reports.GenerateReport(periodType)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to generate report: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if h.deps.Interventions == nil {
		respondError(w, http.StatusServiceUnavailable, "intervention store unavailable")
		return
	}

	limit := defaultErrorLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxErrorLimit {
		limit = maxErrorLimit
	}

	logs, err := h.deps.Interventions.GetRecentErrors(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load error logs: %v", err))
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}
	respondJSON(w, http.StatusOK, logs)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
