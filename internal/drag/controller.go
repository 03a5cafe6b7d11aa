// Package drag owns the drag session: intent inference while the pointer
// moves, and on drop the validation, patch computation and optimistic
// commit of a reorder or reparent.
package drag

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
	"taskboard/internal/model"
	"taskboard/internal/order"
	"taskboard/internal/tree"
)

// TaskStore is the persistence collaborator. ApplyPatch must cascade a
// container change to the task's descendants.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ApplyPatch(ctx context.Context, taskID string, p model.Patch) error
}

// OrderKeySaver is implemented by stores that can write a batch of order keys
// in one transaction. Other stores receive one order-key patch per task.
type OrderKeySaver interface {
	SaveOrderKeys(ctx context.Context, keys map[string]float64) error
}

// State is the controller's session state.
type State string

const (
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateCommitting State = "committing"
)

// DefaultPersistTimeout bounds one background store call.
const DefaultPersistTimeout = 5 * time.Second

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Thresholds     gesture.Thresholds
	Stride         float64
	PersistTimeout time.Duration
	Logger         *slog.Logger
	// OnPersisted is called from the persistence goroutine with the result of
	// each committed patch.
	OnPersisted func(taskID string, err error)
}

// Session is a snapshot of the active drag.
type Session struct {
	TaskID       string           `json:"taskId"`
	Intent       gesture.Intent   `json:"intent"`
	Displacement gesture.Point    `json:"displacement"`
	Pointer      gesture.Point    `json:"pointer"`
	Target       *dropzone.Target `json:"target,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
}

type session struct {
	Session
	cls   *gesture.Classifier
	zones []dropzone.Zone
}

// OutcomeKind classifies how a drop ended.
type OutcomeKind string

const (
	OutcomeCommitted OutcomeKind = "committed"
	OutcomeNoop      OutcomeKind = "noop"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome describes what a drop did. Result is non-nil only for committed
// drops and yields the persistence result exactly once.
type Outcome struct {
	Kind     OutcomeKind        `json:"kind"`
	TaskID   string             `json:"taskId"`
	Target   *dropzone.Target   `json:"target,omitempty"`
	Patch    model.Patch        `json:"patch"`
	Filled   map[string]float64 `json:"filled,omitempty"`
	Err      error              `json:"-"`
	Degraded bool               `json:"degraded,omitempty"`
	Result   <-chan error       `json:"-"`
}

// Controller runs one drag session at a time against a View and writes
// committed drops through a TaskStore.
type Controller struct {
	view  *View
	store TaskStore
	opts  Options
	log   *slog.Logger

	mu    sync.Mutex
	state State
	sess  *session

	inflight sync.WaitGroup
}

// NewController returns an idle controller. A nil store commits to the view
// only.
func NewController(view *View, store TaskStore, opts Options) *Controller {
	if !(opts.Stride > 0) {
		opts.Stride = order.DefaultStride
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Controller{view: view, store: store, opts: opts, log: lg, state: StateIdle}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the active drag, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return Session{}, false
	}
	return c.sess.snapshot(), true
}

func (s *session) snapshot() Session {
	out := s.Session
	if s.Target != nil {
		t := *s.Target
		out.Target = &t
	}
	return out
}

// Start opens a session for taskID. Only one session exists at a time.
func (c *Controller) Start(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrSessionActive
	}
	t, ok := c.view.FindTask(taskID)
	if !ok {
		return ErrTaskNotFound
	}
	cls := gesture.NewClassifier(c.opts.Thresholds)
	c.sess = &session{
		Session: Session{TaskID: t.ID, Intent: cls.Intent(), StartedAt: time.Now()},
		cls:     cls,
	}
	c.state = StateDragging
	c.log.Debug("drag started", "task", t.ID)
	return nil
}

// Move feeds a pointer position. A non-nil zones replaces the candidate
// set; the target is re-resolved against it with the updated intent.
func (c *Controller) Move(p gesture.Point, zones []dropzone.Zone) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging || c.sess == nil {
		return Session{}, ErrNoSession
	}
	s := c.sess
	if zones != nil {
		s.zones = append([]dropzone.Zone{}, zones...)
	}
	prev := s.Intent
	s.Intent = s.cls.Move(p)
	s.Displacement = s.cls.Displacement()
	s.Pointer = p
	if t, ok := dropzone.Resolve(p, s.zones, s.Intent); ok {
		s.Target = &t
	} else {
		s.Target = nil
	}
	if prev != s.Intent {
		c.log.Debug("drag intent changed", "task", s.TaskID, "intent", s.Intent)
	}
	return s.snapshot(), nil
}

// Cancel discards the session without any store interaction.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging {
		return
	}
	c.log.Debug("drag cancelled", "task", c.sess.TaskID)
	c.sess = nil
	c.state = StateIdle
}

// Drop ends the session on the last resolved target.
func (c *Controller) Drop(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	var target *dropzone.Target
	if c.sess != nil && c.sess.Target != nil {
		t := *c.sess.Target
		target = &t
	}
	c.mu.Unlock()
	return c.End(ctx, target)
}

// End finishes the session. A nil target cancels. Valid drops are applied to
// the view before the store call, which runs in the background; the session
// is closed before End returns.
func (c *Controller) End(ctx context.Context, target *dropzone.Target) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateDragging || c.sess == nil {
		c.mu.Unlock()
		return Outcome{}, ErrNoSession
	}
	taskID := c.sess.TaskID
	c.state = StateCommitting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sess = nil
		c.state = StateIdle
		c.mu.Unlock()
	}()

	if target == nil {
		c.log.Debug("drag ended without target", "task", taskID)
		return Outcome{Kind: OutcomeCancelled, TaskID: taskID}, nil
	}
	tgt := *target
	out := Outcome{TaskID: taskID, Target: &tgt}

	pl, err := c.Plan(taskID, tgt)
	switch {
	case err != nil:
		var rej RejectError
		if errors.As(err, &rej) {
			c.log.Info("drop rejected", "task", taskID, "target", tgt.String(), "reason", rej.Reason)
		} else {
			c.log.Warn("drop failed", "task", taskID, "target", tgt.String(), "err", err)
		}
		out.Kind = OutcomeRejected
		out.Err = err
		return out, nil
	case pl.Noop:
		out.Kind = OutcomeNoop
		return out, nil
	}
	if pl.Degraded {
		c.log.Warn("order key precision exhausted; renormalize the group", "task", taskID, "target", tgt.String())
	}
	out.Kind = OutcomeCommitted
	out.Patch = pl.Patch
	out.Filled = pl.Filled
	out.Degraded = pl.Degraded

	if len(pl.Filled) > 0 {
		c.view.SetOrderKeys(pl.Filled)
	}
	c.view.Apply(taskID, pl.Patch)
	out.Result = c.persist(ctx, taskID, pl)
	return out, nil
}

// saveFilled writes keys assigned to previously unkeyed siblings.
func (c *Controller) saveFilled(ctx context.Context, keys map[string]float64) error {
	if len(keys) == 0 {
		return nil
	}
	if ks, ok := c.store.(OrderKeySaver); ok {
		return ks.SaveOrderKeys(ctx, keys)
	}
	for _, id := range sortedIDs(keys) {
		k := keys[id]
		if err := c.store.ApplyPatch(ctx, id, model.Patch{OrderKey: &k}); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(keys map[string]float64) []string {
	ids := make([]string, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Controller) persist(ctx context.Context, taskID string, pl Placement) <-chan error {
	res := make(chan error, 1)
	if c.store == nil {
		res <- nil
		close(res)
		return res
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer close(res)
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.PersistTimeout)
		defer cancel()
		err := c.saveFilled(pctx, pl.Filled)
		if err == nil {
			err = c.store.ApplyPatch(pctx, taskID, pl.Patch)
		}
		if err != nil {
			c.log.Warn("persist patch failed; view is ahead of the store until reload", "task", taskID, "err", err)
		} else {
			c.log.Debug("patch persisted", "task", taskID)
		}
		if c.opts.OnPersisted != nil {
			c.opts.OnPersisted(taskID, err)
		}
		res <- err
	}()
	return res
}

// Wait blocks until every background store call has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Placement is the result of planning a drop.
type Placement struct {
	Patch model.Patch `json:"patch"`
	// Filled holds keys for siblings in the target group that had none. They
	// are written with the patch so the new key sorts where it was planned.
	Filled   map[string]float64 `json:"filled,omitempty"`
	Noop     bool               `json:"noop"`
	Degraded bool               `json:"degraded,omitempty"`
}

// Plan computes the placement for dropping taskID on target against the
// current view without changing anything. Noop is set when the drop would
// leave the task where it is.
func (c *Controller) Plan(taskID string, target dropzone.Target) (Placement, error) {
	dragged, ok := c.view.FindTask(taskID)
	if !ok {
		return Placement{}, ErrTaskNotFound
	}
	stride := c.opts.Stride
	reject := func(r RejectReason) (Placement, error) {
		return Placement{}, RejectError{Reason: r, TaskID: dragged.ID, Target: target.String()}
	}
	noop := func() (Placement, error) { return Placement{Noop: true}, nil }

	switch target.Kind {
	case dropzone.KindIntoTask:
		if target.Ref == dragged.ID {
			return reject(RejectSelf)
		}
		parent, ok := c.view.FindTask(target.Ref)
		if !ok {
			return reject(RejectUnknownTarget)
		}
		if dragged.Parent() == parent.ID {
			return noop()
		}
		if tree.WouldCreateCycle(c.view, dragged.ID, parent.ID) {
			return reject(RejectCycle)
		}
		kids := c.view.Siblings(parent.ID, parent.ContainerKey, dragged.ID)
		eff, filled := groupKeys(kids, stride)
		key := order.First(eff, stride)
		pid, ck := parent.ID, parent.ContainerKey
		return Placement{
			Patch:  model.Patch{SetParent: true, ParentID: &pid, ContainerKey: &ck, OrderKey: &key},
			Filled: filled,
		}, nil

	case dropzone.KindIntoContainer, dropzone.KindIntoEmptyContainer:
		ck := target.Ref
		if dragged.IsRoot() && dragged.ContainerKey == ck {
			return noop()
		}
		roots := c.view.Siblings("", ck, dragged.ID)
		eff, filled := groupKeys(roots, stride)
		key := order.Last(eff, stride)
		return Placement{
			Patch:  model.Patch{SetParent: true, ContainerKey: &ck, OrderKey: &key},
			Filled: filled,
		}, nil

	case dropzone.KindBeforeSibling, dropzone.KindAfterSibling:
		if target.Ref == dragged.ID {
			return noop()
		}
		ref, ok := c.view.FindTask(target.Ref)
		if !ok {
			return reject(RejectUnknownTarget)
		}
		parentID := c.view.GroupParent(*ref)
		if parentID != "" && tree.WouldCreateCycle(c.view, dragged.ID, parentID) {
			return reject(RejectCycle)
		}
		before := target.Kind == dropzone.KindBeforeSibling
		if alreadyAdjacent(c.view.Siblings(parentID, ref.ContainerKey, ""), dragged.ID, ref.ID, before) {
			return noop()
		}

		group := c.view.Siblings(parentID, ref.ContainerKey, dragged.ID)
		idx := -1
		for i, t := range group {
			if t.ID == ref.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return reject(RejectUnknownTarget)
		}
		eff, filled := groupKeys(group, stride)
		var lo, hi *float64
		if before {
			if idx > 0 {
				lo = &eff[idx-1]
			}
			hi = &eff[idx]
		} else {
			lo = &eff[idx]
			if idx+1 < len(eff) {
				hi = &eff[idx+1]
			}
		}
		key, ok := order.Between(lo, hi, stride)
		p := model.Patch{SetParent: true, OrderKey: &key}
		ck := ref.ContainerKey
		p.ContainerKey = &ck
		if parentID != "" {
			p.ParentID = &parentID
		}
		return Placement{Patch: p, Filled: filled, Degraded: !ok}, nil
	}
	return reject(RejectInvalidTarget)
}

// groupKeys returns effective keys for a sorted group and the subset that
// must be written because the task has no key of its own.
func groupKeys(group []model.Task, stride float64) ([]float64, map[string]float64) {
	eff := order.Effective(order.Keys(group), stride)
	var filled map[string]float64
	for i, t := range group {
		if order.Valid(t.OrderKey) {
			continue
		}
		if filled == nil {
			filled = map[string]float64{}
		}
		filled[t.ID] = eff[i]
	}
	return eff, filled
}

// alreadyAdjacent reports whether dragged already sits directly before (or
// after) ref in the sorted group.
func alreadyAdjacent(group []model.Task, draggedID, refID string, before bool) bool {
	di, ri := -1, -1
	for i, t := range group {
		switch t.ID {
		case draggedID:
			di = i
		case refID:
			ri = i
		}
	}
	if di < 0 || ri < 0 {
		return false
	}
	if before {
		return di+1 == ri
	}
	return ri+1 == di
}
