// Package scheduler provides the background auto-sync controller.
// Each cycle pulls every meeting that is ready for device download into the
// local cache and confirms it to the backend once all required artifacts are present.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/status"
	syncpkg "github.com/sidn405/ai-meeting-notes-sub000/internal/sync"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// Backend is the part of the backend API the controller drives.
type Backend interface {
	ListMeetings(ctx context.Context) ([]models.Meeting, error)
	ConfirmDownloadComplete(ctx context.Context, meetingID string) error
}

// Scheduler runs auto-sync cycles on a fixed interval.
type Scheduler struct {
	backend    Backend
	downloader syncpkg.DownloaderInterface
	config     *SchedulerConfig
	metrics    *telemetry.Metrics
	handler    SyncEventHandler

	stopCh          chan struct{}
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	isRunning       bool
	cycleInProgress bool
	lastCycleTime   time.Time
	lastResult      *CycleResult
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Interval          time.Duration         // Time between cycles (default: 10 seconds)
	RunOnStart        bool                  // Run a cycle as soon as Start is called
	RequiredArtifacts []models.ArtifactType // Artifacts that must all succeed before confirming
	CycleTimeout      time.Duration         // Upper bound on one cycle (default: 5 minutes)
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:          10 * time.Second,
		RequiredArtifacts: []models.ArtifactType{models.ArtifactTranscript, models.ArtifactSummary},
		CycleTimeout:      5 * time.Minute,
	}
}

// CycleResult summarizes one auto-sync cycle.
type CycleResult struct {
	CycleID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Eligible  int
	Confirmed []string
	Failed    []string
	Skipped   bool
	ListError error
}

// SchedulerStatus reports the controller's current state.
type SchedulerStatus struct {
	IsRunning       bool
	CycleInProgress bool
	LastCycleTime   *time.Time
	LastResult      *CycleResult
}

// NewScheduler creates a new Scheduler. A nil config uses DefaultSchedulerConfig.
func NewScheduler(backend Backend, downloader syncpkg.DownloaderInterface, config *SchedulerConfig, metrics *telemetry.Metrics) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	if len(config.RequiredArtifacts) == 0 {
		config.RequiredArtifacts = DefaultSchedulerConfig().RequiredArtifacts
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = DefaultSchedulerConfig().CycleTimeout
	}

	return &Scheduler{
		backend:    backend,
		downloader: downloader,
		config:     config,
		metrics:    metrics,
	}
}

// SetEventHandler sets the handler that receives sync events.
func (s *Scheduler) SetEventHandler(handler SyncEventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Start starts the background loop. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, stopCh)

	logging.Info("Auto-sync started", map[string]interface{}{
		"interval_seconds":   s.config.Interval.Seconds(),
		"required_artifacts": s.config.RequiredArtifacts,
	})
}

// Stop stops the background loop and waits for it to exit.
// A cycle in progress is cancelled; downloads already in flight finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	logging.Info("Auto-sync stopped", nil)
}

// IsRunning returns whether the background loop is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current status of the scheduler.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SchedulerStatus{
		IsRunning:       s.isRunning,
		CycleInProgress: s.cycleInProgress,
		LastResult:      s.lastResult,
	}
	if !s.lastCycleTime.IsZero() {
		t := s.lastCycleTime
		st.LastCycleTime = &t
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunCycle(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// =====================================================
// Cycle
// =====================================================

// RunCycle runs one cycle now and waits for it. If another cycle is in progress
// it returns immediately with Skipped set.
func (s *Scheduler) RunCycle(ctx context.Context) *CycleResult {
	s.mu.Lock()
	if s.cycleInProgress {
		s.mu.Unlock()
		logging.Debug("Auto-sync cycle already in progress, skipping", nil)
		s.metrics.ObserveCycle(telemetry.CycleSkipped, 0)
		return &CycleResult{Skipped: true}
	}
	s.cycleInProgress = true
	s.mu.Unlock()

	result := &CycleResult{
		CycleID:   uuid.New().String(),
		StartTime: time.Now(),
	}

	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)

		s.mu.Lock()
		s.cycleInProgress = false
		s.lastCycleTime = result.EndTime
		s.lastResult = result
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.CycleTimeout)
	defer cancel()

	meetings, err := s.backend.ListMeetings(ctx)
	if err != nil {
		result.ListError = err
		logging.ErrorWithCode("Auto-sync cycle skipped: listing meetings failed", string(errors.CodeOf(err)), err,
			map[string]interface{}{"cycle_id": result.CycleID})
		s.metrics.ObserveCycle(telemetry.CycleListFailed, time.Since(result.StartTime))
		return result
	}

	for _, m := range meetings {
		if status.Classify(m.Status, m.Progress) != status.ReadyForDownload {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		result.Eligible++

		if s.syncMeeting(ctx, result.CycleID, m.ID) {
			result.Confirmed = append(result.Confirmed, m.ID)
		} else {
			result.Failed = append(result.Failed, m.ID)
		}
	}

	s.metrics.ObserveCycle(telemetry.CycleCompleted, time.Since(result.StartTime))
	logging.Info("Auto-sync cycle completed", map[string]interface{}{
		"cycle_id":    result.CycleID,
		"eligible":    result.Eligible,
		"confirmed":   len(result.Confirmed),
		"failed":      len(result.Failed),
		"duration_ms": time.Since(result.StartTime).Milliseconds(),
	})
	return result
}

// syncMeeting downloads every required artifact for one meeting and confirms it
// only if all of them succeeded. Failures are logged and never escape.
func (s *Scheduler) syncMeeting(ctx context.Context, cycleID, meetingID string) bool {
	artifacts := s.config.RequiredArtifacts
	errs := make([]error, len(artifacts))

	var g errgroup.Group
	for i, artifact := range artifacts {
		i, artifact := i, artifact
		g.Go(func() error {
			_, errs[i] = s.downloader.Download(ctx, meetingID, artifact)
			return nil
		})
	}
	g.Wait()

	log := logging.Get().With(map[string]interface{}{
		"cycle_id":   cycleID,
		"meeting_id": meetingID,
	})

	ok := true
	for i, err := range errs {
		if err == nil {
			continue
		}
		ok = false
		code := errors.CodeOf(err)
		s.metrics.ObserveArtifactFailure(string(artifacts[i]), string(code))
		log.Warn("Auto-sync artifact download failed", map[string]interface{}{
			"artifact": string(artifacts[i]),
			"code":     string(code),
			"error":    err.Error(),
		})
	}
	if !ok {
		return false
	}

	if err := s.backend.ConfirmDownloadComplete(ctx, meetingID); err != nil {
		log.Warn("Auto-sync confirmation failed", map[string]interface{}{
			"code":  string(errors.CodeOf(err)),
			"error": err.Error(),
		})
		return false
	}

	s.metrics.ObserveConfirmation()
	log.Info("Meeting synced to device")
	s.emitEvent(SyncEvent{
		Type:      SyncEventMeetingSynced,
		CycleID:   cycleID,
		MeetingID: meetingID,
		Artifacts: artifacts,
		Time:      time.Now(),
	})
	return true
}
