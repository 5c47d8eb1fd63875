// Package poller keeps callers informed of a meeting's processing status until it reaches a terminal state.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/status"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// StatusSource fetches a meeting's raw processing status.
type StatusSource interface {
	GetMeetingStatus(ctx context.Context, meetingID string) (*models.MeetingStatus, error)
}

// Update is delivered to subscribers after every fetch.
// When Err is set the fetch failed and the remaining fields hold the last known values.
type Update struct {
	MeetingID     string
	Status        status.SemanticStatus
	RawStatus     string
	Progress      int
	Step          string
	HasTranscript bool
	HasSummary    bool
	Err           error
}

// UpdateFunc receives every update of a session.
type UpdateFunc func(Update)

// PollerConfig holds poller configuration.
type PollerConfig struct {
	Interval     time.Duration // Time between fetches (default: 2 seconds)
	FetchTimeout time.Duration // Upper bound on a single status request
}

// DefaultPollerConfig returns default poller configuration.
func DefaultPollerConfig() *PollerConfig {
	return &PollerConfig{
		Interval:     2 * time.Second,
		FetchTimeout: 30 * time.Second,
	}
}

// Poller runs at most one poll session per meeting.
type Poller struct {
	source   StatusSource
	config   *PollerConfig
	metrics  *telemetry.Metrics
	mu       sync.Mutex
	sessions map[string]*Session
	replaced map[*Session]struct{} // cancelled by a newer session, loop not yet exited
}

// NewPoller creates a new Poller. A nil config uses DefaultPollerConfig.
func NewPoller(source StatusSource, config *PollerConfig, metrics *telemetry.Metrics) *Poller {
	if config == nil {
		config = DefaultPollerConfig()
	}
	return &Poller{
		source:   source,
		config:   config,
		metrics:  metrics,
		sessions: make(map[string]*Session),
		replaced: make(map[*Session]struct{}),
	}
}

// Session is the handle for one running poll loop.
type Session struct {
	ID        string
	MeetingID string

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Cancel stops the session. It is safe to call more than once and from inside callbacks.
// It does not wait for an in-flight fetch; its result is discarded.
func (s *Session) Cancel() {
	s.once.Do(s.cancel)
}

// Done is closed once the session's loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start begins polling meetingID: one fetch immediately, then one per interval.
// onUpdate runs after every fetch; onTerminal runs exactly once if the meeting
// becomes Completed or Failed, after which polling stops. Either callback may be nil.
// Starting a second session for the same meeting cancels the first. The session
// also ends when ctx is cancelled.
func (p *Poller) Start(ctx context.Context, meetingID string, onUpdate, onTerminal UpdateFunc) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.mu.Lock()
	if old, ok := p.sessions[meetingID]; ok {
		old.Cancel()
		p.replaced[old] = struct{}{}
		logging.Debug("Replacing poll session", map[string]interface{}{
			"meeting_id":     meetingID,
			"old_session_id": old.ID,
			"session_id":     s.ID,
		})
	}
	p.sessions[meetingID] = s
	p.mu.Unlock()

	p.metrics.SessionStarted()
	go p.run(ctx, s, onUpdate, onTerminal)
	return s
}

// Active reports whether meetingID has a running session.
func (p *Poller) Active(meetingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[meetingID]
	return ok
}

// StopAll cancels every session, including replaced ones still winding down,
// and waits for their loops to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions)+len(p.replaced))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	for s := range p.replaced {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
		<-s.Done()
	}
}

func (p *Poller) run(ctx context.Context, s *Session, onUpdate, onTerminal UpdateFunc) {
	defer close(s.done)
	defer p.metrics.SessionEnded()
	defer p.remove(s)
	defer s.Cancel()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	last := Update{MeetingID: s.MeetingID, Status: status.Unknown}
	for {
		if p.poll(ctx, s, &last, onUpdate, onTerminal) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// poll performs one fetch and reports whether the session should end.
func (p *Poller) poll(ctx context.Context, s *Session, last *Update, onUpdate, onTerminal UpdateFunc) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, p.config.FetchTimeout)
	st, err := p.source.GetMeetingStatus(fetchCtx, s.MeetingID)
	cancel()
	if err == nil && st == nil {
		err = errors.New(errors.ErrTransport, "empty status response")
	}

	if ctx.Err() != nil {
		return true
	}

	if err != nil {
		p.metrics.ObservePoll(false)
		logging.Warn("Status check failed", map[string]interface{}{
			"meeting_id": s.MeetingID,
			"session_id": s.ID,
			"code":       string(errors.CodeOf(err)),
			"error":      err.Error(),
		})
		last.Err = err
		notify(onUpdate, *last)
		return false
	}

	p.metrics.ObservePoll(true)
	*last = Update{
		MeetingID:     s.MeetingID,
		Status:        status.Classify(st.Status, st.Progress),
		RawStatus:     st.Status,
		Progress:      st.Progress,
		Step:          st.Step,
		HasTranscript: st.HasTranscript,
		HasSummary:    st.HasSummary,
	}
	notify(onUpdate, *last)

	if last.Status.IsTerminal() {
		logging.Info("Meeting reached terminal status", map[string]interface{}{
			"meeting_id": s.MeetingID,
			"session_id": s.ID,
			"status":     last.Status.String(),
		})
		notify(onTerminal, *last)
		return true
	}
	return false
}

func (p *Poller) remove(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[s.MeetingID] == s {
		delete(p.sessions, s.MeetingID)
	}
	delete(p.replaced, s)
}

func notify(fn UpdateFunc, u Update) {
	if fn != nil {
		fn(u)
	}
}
