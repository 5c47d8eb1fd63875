package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

// =====================================================
// Stream Event Types
// =====================================================

const (
	EventStatusUpdate   = "status.update"
	EventStatusError    = "status.error"
	EventStatusTerminal = "status.terminal"
)

// StreamClosedSessionEnded is the close reason sent when the poll session ends
// before a terminal status, for example because another client subscribed to
// the same meeting.
const StreamClosedSessionEnded = "session ended"

// StreamEnvelope wraps every message written to a status stream.
type StreamEnvelope struct {
	Type      string         `json:"type"`
	Data      statusResponse `json:"data"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts clients without an Origin header, loopback origins,
// and same-host origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handleStatusStream subscribes to a meeting's status and pushes every update
// over a websocket until the meeting is terminal, the session is replaced, or
// the client goes away.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan poller.Update, 16)
	onUpdate := func(u poller.Update) {
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	}

	sub, err := s.svc.SubscribeToStatus(ctx, meetingID, onUpdate, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Status stream upgrade failed", map[string]interface{}{
			"meeting_id": meetingID,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close()

	logging.Debug("Status stream opened", map[string]interface{}{
		"meeting_id": meetingID,
		"remote":     r.RemoteAddr,
	})

	go readStream(conn, cancel)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case u := <-updates:
			if writeUpdate(conn, u) {
				return
			}

		case <-sub.Done():
			// A newer subscriber or shutdown ended the session. Flush what it
			// delivered, then close so the client does not wait on a dead stream.
			for len(updates) > 0 {
				if writeUpdate(conn, <-updates) {
					return
				}
			}
			logging.Debug("Status stream session ended", map[string]interface{}{
				"meeting_id": meetingID,
			})
			writeClose(conn, websocket.CloseGoingAway, StreamClosedSessionEnded)
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeUpdate sends one update and reports whether the stream is finished,
// either because the update was terminal or because the write failed.
func writeUpdate(conn *websocket.Conn, u poller.Update) bool {
	env := toEnvelope(u)
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(env); err != nil {
		return true
	}
	if env.Type == EventStatusTerminal {
		writeClose(conn, websocket.CloseNormalClosure, u.Status.String())
		return true
	}
	return false
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// readStream drains client frames so control messages are processed, and
// cancels the stream once the client disconnects.
func readStream(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Debug("Status stream read error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func toEnvelope(u poller.Update) StreamEnvelope {
	env := StreamEnvelope{
		Type:      EventStatusUpdate,
		Data:      toStatusResponse(&u),
		Timestamp: time.Now().Unix(),
	}
	switch {
	case u.Err != nil:
		env.Type = EventStatusError
		env.Error = u.Err.Error()
	case u.Status.IsTerminal():
		env.Type = EventStatusTerminal
	}
	return env
}
