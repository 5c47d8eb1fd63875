package scheduler

import (
	"time"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// SyncEventType identifies an auto-sync notification.
type SyncEventType string

const (
	// SyncEventMeetingSynced fires once per meeting confirmed to the backend.
	SyncEventMeetingSynced SyncEventType = "meeting_synced"
)

// SyncEvent is delivered to the registered SyncEventHandler.
type SyncEvent struct {
	Type      SyncEventType
	CycleID   string
	MeetingID string
	Artifacts []models.ArtifactType
	Time      time.Time
}

// SyncEventHandler receives auto-sync events.
// Failures never produce events; only successful syncs are user-visible.
type SyncEventHandler interface {
	OnSyncEvent(event SyncEvent)
}

// SyncEventHandlerFunc adapts a function to a SyncEventHandler.
type SyncEventHandlerFunc func(event SyncEvent)

// OnSyncEvent calls f.
func (f SyncEventHandlerFunc) OnSyncEvent(event SyncEvent) {
	f(event)
}

func (s *Scheduler) emitEvent(event SyncEvent) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()

	if handler != nil {
		handler.OnSyncEvent(event)
	}
}
