package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

// wsReply answers one client message. Type is "state" for start/move/cancel,
// "outcome" for end/drop and "error" otherwise.
type wsReply struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

const wsWriteTimeout = 10 * time.Second

// handleWS carries one pointer stream per connection. Messages are JSON text
// frames shaped like the POST bodies plus a "type" field. A drag started on
// this connection is cancelled when the connection drops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	owned := ""
	defer func() {
		if owned == "" {
			return
		}
		if st := s.engine.ActiveDragState(); st != nil && st.ActiveTaskID == owned {
			s.engine.OnDragCancel()
			s.hub.broadcast()
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var req dragRequest
		if jerr := json.Unmarshal(data, &req); jerr != nil {
			if werr := writeWS(conn, wsReply{Type: "error", Error: "invalid message: " + jerr.Error()}); werr != nil {
				return
			}
			continue
		}
		op := strings.ToLower(strings.TrimSpace(req.Type))
		out, derr := s.dispatch(r, op, req)
		reply := wsReply{Type: "state", Data: out}
		switch {
		case derr != nil:
			reply = wsReply{Type: "error", Error: derr.Error()}
		case op == "start":
			owned = strings.TrimSpace(req.TaskID)
		case op == "end" || op == "drop":
			reply.Type = "outcome"
			owned = ""
		case op == "cancel":
			owned = ""
		}
		if werr := writeWS(conn, reply); werr != nil {
			return
		}
	}
}

func writeWS(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
