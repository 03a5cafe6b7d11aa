package drag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"taskboard/internal/board"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
	"taskboard/internal/model"
)

// DragState is what the presentation needs to render an active drag.
type DragState struct {
	ActiveTaskID string           `json:"activeTaskId"`
	Intent       gesture.Intent   `json:"intent"`
	Target       *dropzone.Target `json:"target,omitempty"`
	Displacement gesture.Point    `json:"displacement"`
}

type EngineOptions struct {
	Board      board.Config
	Controller Options
	Logger     *slog.Logger
	Now        func() time.Time
	// OnChange is called after the view changes (reload, optimistic commit,
	// failed persistence).
	OnChange func()
}

// Engine is the surface the presentation layer talks to.
type Engine struct {
	store TaskStore
	view  *View
	ctrl  *Controller
	log   *slog.Logger
	now   func() time.Time

	mu       sync.RWMutex
	cfg      board.Config
	onChange func()

	stale atomic.Bool
}

func NewEngine(store TaskStore, opts EngineOptions) *Engine {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		store:    store,
		view:     NewView(nil),
		log:      lg,
		now:      now,
		cfg:      opts.Board,
		onChange: opts.OnChange,
	}
	copts := opts.Controller
	if copts.Logger == nil {
		copts.Logger = lg
	}
	user := copts.OnPersisted
	copts.OnPersisted = func(taskID string, err error) {
		if err != nil {
			e.stale.Store(true)
			e.changed()
		}
		if user != nil {
			user(taskID, err)
		}
	}
	e.ctrl = NewController(e.view, store, copts)
	return e
}

// SetOnChange replaces the change callback.
func (e *Engine) SetOnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Engine) changed() {
	e.mu.RLock()
	fn := e.onChange
	e.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Reload replaces the view with the store's current task set.
func (e *Engine) Reload(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("reload tasks: %w", err)
	}
	v := e.view.Reload(tasks)
	e.stale.Store(false)
	e.log.Debug("view reloaded", "tasks", len(tasks), "version", v)
	e.changed()
	return nil
}

// Load replaces the view with tasks without touching the store.
func (e *Engine) Load(tasks []model.Task) {
	e.view.Reload(tasks)
	e.changed()
}

func (e *Engine) View() *View { return e.view }

func (e *Engine) Controller() *Controller { return e.ctrl }

// Stale reports whether a persistence failure left the view ahead of the
// store since the last reload.
func (e *Engine) Stale() bool { return e.stale.Load() }

func (e *Engine) BoardConfig() board.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

func (e *Engine) SetBoardConfig(cfg board.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.changed()
}

func (e *Engine) OnDragStart(taskID string) error {
	return e.ctrl.Start(taskID)
}

func (e *Engine) OnDragMove(pointer gesture.Point, zones []dropzone.Zone) (DragState, error) {
	s, err := e.ctrl.Move(pointer, zones)
	if err != nil {
		return DragState{}, err
	}
	return stateOf(s), nil
}

// OnDragEnd ends the drag on target; nil cancels.
func (e *Engine) OnDragEnd(ctx context.Context, target *dropzone.Target) (Outcome, error) {
	out, err := e.ctrl.End(ctx, target)
	if err == nil && out.Kind == OutcomeCommitted {
		e.changed()
	}
	return out, err
}

// OnDrop ends the drag on the last target resolved by OnDragMove.
func (e *Engine) OnDrop(ctx context.Context) (Outcome, error) {
	out, err := e.ctrl.Drop(ctx)
	if err == nil && out.Kind == OutcomeCommitted {
		e.changed()
	}
	return out, err
}

func (e *Engine) OnDragCancel() {
	e.ctrl.Cancel()
}

// VisibleContainers assembles the board from the current view.
func (e *Engine) VisibleContainers() []board.Container {
	return board.Assemble(e.view.Tasks(), e.BoardConfig(), e.now())
}

// ActiveDragState returns nil when no drag is in progress.
func (e *Engine) ActiveDragState() *DragState {
	s, ok := e.ctrl.Session()
	if !ok {
		return nil
	}
	st := stateOf(s)
	return &st
}

// Wait blocks until background persistence has settled.
func (e *Engine) Wait() { e.ctrl.Wait() }

func stateOf(s Session) DragState {
	return DragState{
		ActiveTaskID: s.TaskID,
		Intent:       s.Intent,
		Target:       s.Target,
		Displacement: s.Displacement,
	}
}
