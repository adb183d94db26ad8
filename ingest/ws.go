package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Ack is written back for every frame received on /ws.
type Ack struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

// stream reads activity frames until the client goes away or the server
// shuts down.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.track(conn)
	defer s.untrack(conn)
	conn.SetReadLimit(maxBody)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket stream ended", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		var a Activity
		if err := json.Unmarshal(data, &a); err != nil {
			if err := conn.WriteJSON(Ack{Status: http.StatusBadRequest, Error: "malformed frame: " + err.Error()}); err != nil {
				return
			}
			continue
		}

		ack := Ack{}
		ack.Status, err = s.Process(a)
		if err != nil {
			ack.Error = err.Error()
		}
		if err := conn.WriteJSON(ack); err != nil {
			slog.Debug("websocket write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Server) closeStreams() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
