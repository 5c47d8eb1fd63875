// Package services provides the UI-facing orchestration layer.
// MeetingService ties the status poller, download manager, cache index and
// auto-sync controller into the operations a client UI calls.
package services

import (
	"context"
	"strings"
	"sync"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/status"
	syncpkg "github.com/sidn405/ai-meeting-notes-sub000/internal/sync"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/scheduler"
)

// Backend is the part of the backend API the service calls directly.
type Backend interface {
	GetMeetingStatus(ctx context.Context, meetingID string) (*models.MeetingStatus, error)
	GetCloudStatus(ctx context.Context, meetingID string) (*models.CloudStatus, error)
}

// MeetingService is the surface exposed to UI collaborators.
type MeetingService struct {
	backend    Backend
	poller     *poller.Poller
	downloader syncpkg.DownloaderInterface
	cache      *syncpkg.Cache
	scheduler  *scheduler.Scheduler

	mu       sync.Mutex
	autoSync bool
}

// NewMeetingService creates a new MeetingService. scheduler may be nil when
// auto-sync is never used.
func NewMeetingService(
	backend Backend,
	p *poller.Poller,
	downloader syncpkg.DownloaderInterface,
	cache *syncpkg.Cache,
	sched *scheduler.Scheduler,
) *MeetingService {
	return &MeetingService{
		backend:    backend,
		poller:     p,
		downloader: downloader,
		cache:      cache,
		scheduler:  sched,
	}
}

// =====================================================
// Status
// =====================================================

// Subscription is the handle for one status subscription.
type Subscription interface {
	// Cancel stops updates. It is safe to call more than once.
	Cancel()
	// Done is closed once the subscription has ended, whether by Cancel,
	// a terminal status, a newer subscription for the same meeting, or shutdown.
	Done() <-chan struct{}
}

// Ensure *poller.Session implements Subscription at compile time.
var _ Subscription = (*poller.Session)(nil)

// SubscribeToStatus starts a poll session for meetingID. The caller must call
// Cancel on the returned subscription when it no longer needs updates.
// A newer subscription for the same meeting ends this one.
func (s *MeetingService) SubscribeToStatus(ctx context.Context, meetingID string, onUpdate, onTerminal poller.UpdateFunc) (Subscription, error) {
	if err := requireID(meetingID); err != nil {
		return nil, err
	}
	return s.poller.Start(ctx, meetingID, onUpdate, onTerminal), nil
}

// CheckStatus fetches and classifies a meeting's status once.
func (s *MeetingService) CheckStatus(ctx context.Context, meetingID string) (*poller.Update, error) {
	if err := requireID(meetingID); err != nil {
		return nil, err
	}
	st, err := s.backend.GetMeetingStatus(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return &poller.Update{
		MeetingID:     meetingID,
		Status:        status.Classify(st.Status, st.Progress),
		RawStatus:     st.Status,
		Progress:      st.Progress,
		Step:          st.Step,
		HasTranscript: st.HasTranscript,
		HasSummary:    st.HasSummary,
	}, nil
}

// CloudStatus returns where a meeting's files are stored.
func (s *MeetingService) CloudStatus(ctx context.Context, meetingID string) (*models.CloudStatus, error) {
	if err := requireID(meetingID); err != nil {
		return nil, err
	}
	return s.backend.GetCloudStatus(ctx, meetingID)
}

// =====================================================
// Local Files
// =====================================================

// EnsureLocalCopy returns the cached artifact, downloading it first if needed.
func (s *MeetingService) EnsureLocalCopy(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.CachedFileRecord, error) {
	if err := requireID(meetingID); err != nil {
		return nil, err
	}
	return s.downloader.Download(ctx, meetingID, artifact)
}

// ListCachedFiles lists a meeting's cached files in download order.
func (s *MeetingService) ListCachedFiles(meetingID string) ([]*models.CachedFileRecord, error) {
	if err := requireID(meetingID); err != nil {
		return nil, err
	}
	return s.cache.List(meetingID)
}

// ListCachedMeetings returns the IDs of meetings with files in the local cache,
// in the order they were first cached.
func (s *MeetingService) ListCachedMeetings() ([]string, error) {
	return s.cache.Meetings()
}

// DeleteCachedFile removes one cached file. Deleting a file that is not cached is not an error.
func (s *MeetingService) DeleteCachedFile(meetingID, filename string) error {
	if err := requireID(meetingID); err != nil {
		return err
	}
	removed, err := s.cache.Remove(meetingID, filename)
	if err != nil {
		return err
	}
	logging.Info("Cached file deleted", map[string]interface{}{
		"meeting_id": meetingID,
		"filename":   filename,
		"existed":    removed,
	})
	return nil
}

// DeleteAllCachedFiles removes every cached file of a meeting and returns how many ledger rows were removed.
func (s *MeetingService) DeleteAllCachedFiles(meetingID string) (int64, error) {
	if err := requireID(meetingID); err != nil {
		return 0, err
	}
	n, err := s.cache.RemoveAll(meetingID)
	if err != nil {
		return 0, err
	}
	logging.Info("Cached files deleted", map[string]interface{}{
		"meeting_id": meetingID,
		"count":      n,
	})
	return n, nil
}

// =====================================================
// Auto-Sync
// =====================================================

// StartAutoSync starts the auto-sync controller when requiresDeviceSync is set
// and returns a stop func. Otherwise nothing starts and stop is a no-op.
// The flag is evaluated once here; a running controller is not affected by later calls.
func (s *MeetingService) StartAutoSync(ctx context.Context, requiresDeviceSync bool) func() {
	if !requiresDeviceSync || s.scheduler == nil {
		logging.Info("Auto-sync not started", map[string]interface{}{
			"requires_device_sync": requiresDeviceSync,
		})
		return func() {}
	}

	s.mu.Lock()
	s.autoSync = true
	s.mu.Unlock()

	s.scheduler.Start(ctx)
	return sync.OnceFunc(func() {
		s.mu.Lock()
		s.autoSync = false
		s.mu.Unlock()
		s.scheduler.Stop()
	})
}

// AutoSyncEnabled reports whether StartAutoSync started the controller and it has not been stopped.
func (s *MeetingService) AutoSyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSync
}

// AutoSyncStatus returns the controller status, or a zero status when auto-sync is not configured.
func (s *MeetingService) AutoSyncStatus() scheduler.SchedulerStatus {
	if s.scheduler == nil {
		return scheduler.SchedulerStatus{}
	}
	return s.scheduler.Status()
}

// SyncNow runs one auto-sync cycle immediately.
func (s *MeetingService) SyncNow(ctx context.Context) (*scheduler.CycleResult, error) {
	if s.scheduler == nil {
		return nil, errors.New(errors.ErrInvalid, "auto-sync is not configured")
	}
	return s.scheduler.RunCycle(ctx), nil
}

// Close stops every poll session and the auto-sync controller.
func (s *MeetingService) Close() {
	s.poller.StopAll()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.mu.Lock()
	s.autoSync = false
	s.mu.Unlock()
}

func requireID(meetingID string) error {
	if strings.TrimSpace(meetingID) == "" {
		return errors.New(errors.ErrInvalid, "meeting id is required")
	}
	return nil
}
