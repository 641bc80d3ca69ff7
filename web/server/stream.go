package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// StreamMessage is one frame sent to WebSocket clients.
// Exactly one of State and Console is set.
type StreamMessage struct {
	Type    string          `json:"type"` // "state" or "console"
	State   *StateResponse  `json:"state,omitempty"`
	Console *ConsoleMessage `json:"console,omitempty"`
}

const writeTimeout = 5 * time.Second

// handleStream pushes render progress and console output over a WebSocket
// until the client goes away or the server closes
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	console := s.hub.subscribe()
	defer s.hub.unsubscribe(console)

	// The client never sends anything we use, but reading is how close frames arrive
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return false
		}
		return true
	}

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	state := s.state()
	if !send(StreamMessage{Type: "state", State: &state}) {
		return
	}

	for {
		select {
		case <-ticker.C:
			state := s.state()
			if !send(StreamMessage{Type: "state", State: &state}) {
				return
			}
		case msg := <-console:
			if !send(StreamMessage{Type: "console", Console: &msg}) {
				return
			}
		case <-gone:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeTimeout))
			return
		}
	}
}
