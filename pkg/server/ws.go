package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsRequest struct {
	Message string `json:"message"`
}

// handleWebSocket streams answers over a WebSocket. Each client frame is
// JSON {"message": ...}; the reply is a sequence of raw text frames, one per
// answer delta, and the final delta is sent once more as the end-of-turn
// terminator frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Debug("websocket client connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Message == "" {
			s.writeText(conn, "Error processing request: invalid message payload")
			continue
		}

		s.streamTurn(conn, req.Message)
	}
}

// streamTurn runs one turn against the socket. Send failures are logged and
// the run continues to completion so the history write still happens.
func (s *Server) streamTurn(conn *websocket.Conn, query string) {
	var lastDelta string
	answer, err := s.runTurn(query, func(delta string) {
		lastDelta = delta
		s.writeText(conn, delta)
	})
	if err != nil {
		slog.Error("websocket turn failed", "error", err)
		s.writeText(conn, fmt.Sprintf("Error processing request: %v", err))
		return
	}

	// End-of-turn terminator: the final delta repeated. Clients detect the
	// duplicate frame as the turn boundary.
	if lastDelta != "" {
		s.writeText(conn, lastDelta)
	} else if answer != "" {
		s.writeText(conn, answer)
	}
}

func (s *Server) writeText(conn *websocket.Conn, text string) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}
