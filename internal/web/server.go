package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/drag"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
)

type ServerConfig struct {
	Addr   string
	Engine *drag.Engine
	Logger *slog.Logger
}

// Server exposes the drag engine over HTTP: a JSON request/response surface,
// a websocket for pointer streams and a datastar signals stream that follows
// board changes.
type Server struct {
	cfg    ServerConfig
	engine *drag.Engine
	log    *slog.Logger
	hub    *resourceHub
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("web: missing engine")
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		engine: cfg.Engine,
		log:    lg.With("component", "web"),
		hub:    newResourceHub(),
	}
	cfg.Engine.SetOnChange(s.hub.broadcast)
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /board", s.handleBoard)
	mux.HandleFunc("POST /reload", s.handleReload)
	mux.HandleFunc("GET /drag", s.handleDragState)
	mux.HandleFunc("POST /drag/start", s.handleDragStart)
	mux.HandleFunc("POST /drag/move", s.handleDragMove)
	mux.HandleFunc("POST /drag/end", s.handleDragEnd)
	mux.HandleFunc("POST /drag/cancel", s.handleDragCancel)
	mux.HandleFunc("POST /drop", s.handleDrop)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type boardVM struct {
	Containers []board.Container `json:"containers"`
	Stale      bool              `json:"stale"`
	Version    uint64            `json:"version"`
	Drag       *drag.DragState   `json:"drag"`
}

func (s *Server) boardSnapshot() boardVM {
	return boardVM{
		Containers: s.engine.VisibleContainers(),
		Stale:      s.engine.Stale(),
		Version:    s.engine.View().Version(),
		Drag:       s.engine.ActiveDragState(),
	}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.boardSnapshot()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reload(r.Context()); err != nil {
		s.log.Error("reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.boardSnapshot()})
}

func (s *Server) handleDragState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.ActiveDragState()})
}

// dragRequest is shared by the JSON endpoints and websocket messages.
type dragRequest struct {
	Type    string          `json:"type,omitempty"`
	TaskID  string          `json:"taskId,omitempty"`
	Pointer *gesture.Point  `json:"pointer,omitempty"`
	Zones   []dropzone.Zone `json:"zones,omitempty"`
	// Target accepts either "kind:ref" or {"kind":..,"ref":..}; null or
	// missing means the drag ends outside any target.
	Target json.RawMessage `json:"target,omitempty"`
}

func (req dragRequest) target() (*dropzone.Target, error) {
	raw := strings.TrimSpace(string(req.Target))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(req.Target, &s); err != nil {
			return nil, err
		}
		t, err := dropzone.ParseTarget(s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	var t dropzone.Target
	if err := json.Unmarshal(req.Target, &t); err != nil {
		return nil, err
	}
	if !t.Kind.Valid() {
		return nil, fmt.Errorf("unknown drop target kind %q", t.Kind)
	}
	return &t, nil
}

func decodeDragRequest(r *http.Request) (dragRequest, error) {
	var req dragRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

type outcomeVM struct {
	Kind     drag.OutcomeKind   `json:"kind"`
	TaskID   string             `json:"taskId"`
	Target   *dropzone.Target   `json:"target,omitempty"`
	Patch    any                `json:"patch,omitempty"`
	Filled   map[string]float64 `json:"filled,omitempty"`
	Degraded bool               `json:"degraded,omitempty"`
	Reason   drag.RejectReason  `json:"reason,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func outcomeView(o drag.Outcome) outcomeVM {
	vm := outcomeVM{Kind: o.Kind, TaskID: o.TaskID, Target: o.Target, Degraded: o.Degraded}
	if o.Kind == drag.OutcomeCommitted {
		vm.Patch = o.Patch
		vm.Filled = o.Filled
	}
	var rej drag.RejectError
	if errors.As(o.Err, &rej) {
		vm.Reason = rej.Reason
	}
	if o.Err != nil {
		vm.Error = o.Err.Error()
	}
	return vm
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDragRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := s.dispatch(r, "start", req)
	s.respond(w, data, err)
}

func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDragRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := s.dispatch(r, "move", req)
	s.respond(w, data, err)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDragRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := s.dispatch(r, "end", req)
	s.respond(w, data, err)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	data, err := s.dispatch(r, "drop", dragRequest{})
	s.respond(w, data, err)
}

func (s *Server) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	data, err := s.dispatch(r, "cancel", dragRequest{})
	s.respond(w, data, err)
}

// dispatch runs one drag operation. The returned value is the drag state for
// start/move/cancel and an outcomeVM for end/drop.
func (s *Server) dispatch(r *http.Request, op string, req dragRequest) (any, error) {
	switch op {
	case "start":
		id := strings.TrimSpace(req.TaskID)
		if id == "" {
			return nil, errBadRequest("missing taskId")
		}
		if err := s.engine.OnDragStart(id); err != nil {
			return nil, err
		}
		s.hub.broadcast()
		return s.engine.ActiveDragState(), nil
	case "move":
		if req.Pointer == nil {
			return nil, errBadRequest("missing pointer")
		}
		st, err := s.engine.OnDragMove(*req.Pointer, req.Zones)
		if err != nil {
			return nil, err
		}
		s.hub.broadcast()
		return st, nil
	case "end":
		t, err := req.target()
		if err != nil {
			return nil, errBadRequest(err.Error())
		}
		out, err := s.engine.OnDragEnd(r.Context(), t)
		if err != nil {
			return nil, err
		}
		s.logOutcome(out)
		s.hub.broadcast()
		return outcomeView(out), nil
	case "drop":
		out, err := s.engine.OnDrop(r.Context())
		if err != nil {
			return nil, err
		}
		s.logOutcome(out)
		s.hub.broadcast()
		return outcomeView(out), nil
	case "cancel":
		s.engine.OnDragCancel()
		s.hub.broadcast()
		return s.engine.ActiveDragState(), nil
	}
	return nil, errBadRequest(fmt.Sprintf("unknown message type %q", op))
}

func (s *Server) logOutcome(o drag.Outcome) {
	switch o.Kind {
	case drag.OutcomeRejected:
		s.log.Debug("drop rejected", "task", o.TaskID, "err", o.Err)
	case drag.OutcomeCommitted:
		s.log.Info("drop committed", "task", o.TaskID, "target", o.Target, "degraded", o.Degraded)
	}
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, drag.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, drag.ErrSessionActive), errors.Is(err, drag.ErrNoSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"message": err.Error(), "status": status}})
}
