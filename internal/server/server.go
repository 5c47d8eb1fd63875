// Package server provides the local HTTP control surface over the meeting service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/services"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/scheduler"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// MeetingAPI is the service surface the handlers call.
type MeetingAPI interface {
	SubscribeToStatus(ctx context.Context, meetingID string, onUpdate, onTerminal poller.UpdateFunc) (services.Subscription, error)
	CheckStatus(ctx context.Context, meetingID string) (*poller.Update, error)
	CloudStatus(ctx context.Context, meetingID string) (*models.CloudStatus, error)
	EnsureLocalCopy(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.CachedFileRecord, error)
	ListCachedFiles(meetingID string) ([]*models.CachedFileRecord, error)
	DeleteCachedFile(meetingID, filename string) error
	DeleteAllCachedFiles(meetingID string) (int64, error)
	AutoSyncStatus() scheduler.SchedulerStatus
	SyncNow(ctx context.Context) (*scheduler.CycleResult, error)
}

// Ensure *services.MeetingService implements MeetingAPI at compile time.
var _ MeetingAPI = (*services.MeetingService)(nil)

// Server is the local HTTP server.
type Server struct {
	svc        MeetingAPI
	metrics    *telemetry.Metrics
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server.
func New(svc MeetingAPI, metrics *telemetry.Metrics) *Server {
	s := &Server{
		svc:     svc,
		metrics: metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/meetings/{meetingID}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/status/stream", s.handleStatusStream)
		r.Get("/cloud-status", s.handleCloudStatus)
		r.Get("/files", s.handleListFiles)
		r.Delete("/files", s.handleDeleteAllFiles)
		r.Post("/files/{name}", s.handleEnsureLocalCopy)
		r.Delete("/files/{name}", s.handleDeleteFile)
	})

	r.Get("/autosync", s.handleAutoSyncStatus)
	r.Post("/autosync/run", s.handleSyncNow)

	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info("Control server starting", map[string]interface{}{"addr": addr})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the JSON shape of a classified status.
type statusResponse struct {
	MeetingID     string `json:"meeting_id"`
	Status        string `json:"status"`
	RawStatus     string `json:"raw_status"`
	Progress      int    `json:"progress"`
	Step          string `json:"step"`
	Terminal      bool   `json:"terminal"`
	HasTranscript bool   `json:"has_transcript"`
	HasSummary    bool   `json:"has_summary"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.CheckStatus(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(u))
}

func toStatusResponse(u *poller.Update) statusResponse {
	return statusResponse{
		MeetingID:     u.MeetingID,
		Status:        u.Status.String(),
		RawStatus:     u.RawStatus,
		Progress:      u.Progress,
		Step:          u.Step,
		Terminal:      u.Status.IsTerminal(),
		HasTranscript: u.HasTranscript,
		HasSummary:    u.HasSummary,
	}
}

func (s *Server) handleCloudStatus(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.CloudStatus(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	files, err := s.svc.ListCachedFiles(meetingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"meeting_id": meetingID,
		"files":      files,
	})
}

func (s *Server) handleEnsureLocalCopy(w http.ResponseWriter, r *http.Request) {
	artifact, err := models.ParseArtifactType(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalid, "unknown artifact type", err))
		return
	}
	rec, err := s.svc.EnsureLocalCopy(r.Context(), chi.URLParam(r, "meetingID"), artifact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCachedFile(chi.URLParam(r, "meetingID"), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllFiles(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteAllCachedFiles(chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// autoSyncResponse is the JSON shape of the controller status.
type autoSyncResponse struct {
	Running         bool           `json:"running"`
	CycleInProgress bool           `json:"cycle_in_progress"`
	LastCycleTime   *time.Time     `json:"last_cycle_time,omitempty"`
	LastCycle       *cycleResponse `json:"last_cycle,omitempty"`
}

type cycleResponse struct {
	CycleID    string   `json:"cycle_id,omitempty"`
	Skipped    bool     `json:"skipped"`
	Eligible   int      `json:"eligible"`
	Confirmed  []string `json:"confirmed"`
	Failed     []string `json:"failed"`
	DurationMs int64    `json:"duration_ms"`
	ListError  string   `json:"list_error,omitempty"`
}

func toCycleResponse(c *scheduler.CycleResult) *cycleResponse {
	if c == nil {
		return nil
	}
	resp := &cycleResponse{
		CycleID:    c.CycleID,
		Skipped:    c.Skipped,
		Eligible:   c.Eligible,
		Confirmed:  c.Confirmed,
		Failed:     c.Failed,
		DurationMs: c.Duration.Milliseconds(),
	}
	if resp.Confirmed == nil {
		resp.Confirmed = []string{}
	}
	if resp.Failed == nil {
		resp.Failed = []string{}
	}
	if c.ListError != nil {
		resp.ListError = c.ListError.Error()
	}
	return resp
}

func (s *Server) handleAutoSyncStatus(w http.ResponseWriter, r *http.Request) {
	st := s.svc.AutoSyncStatus()
	writeJSON(w, http.StatusOK, autoSyncResponse{
		Running:         st.IsRunning,
		CycleInProgress: st.CycleInProgress,
		LastCycleTime:   st.LastCycleTime,
		LastCycle:       toCycleResponse(st.LastResult),
	})
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.SyncNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleResponse(result))
}
