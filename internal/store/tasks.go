package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/order"
	"taskboard/internal/tree"
)

// ListTasks returns every task, grouped by container and parent.
func (s Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	out, err := readJSONRows[model.Task](ctx, db, `SELECT json FROM tasks ORDER BY container_key, parent_id, order_key IS NULL, order_key, id`)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Task{}
	}
	return out, nil
}

// GetTask returns one task or NotFoundError.
func (s Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Task{}, err
	}
	defer db.Close()
	t, err := readTask(ctx, db, id)
	if err != nil {
		return model.Task{}, err
	}
	return *t, nil
}

type NewTask struct {
	Title        string
	ParentID     string
	ContainerKey string
	Due          *model.DateTime
}

// CreateTask appends a task at the end of its sibling group. A child always
// takes its parent's container key.
func (s Store) CreateTask(ctx context.Context, in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, errors.New("missing title")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Task{}, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	t := model.Task{Title: title, ContainerKey: strings.TrimSpace(in.ContainerKey), Due: in.Due, CreatedAt: now, UpdatedAt: now}
	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		parent, err := readTask(ctx, tx, parentID)
		if err != nil {
			return model.Task{}, err
		}
		t.ParentID = &parent.ID
		t.ContainerKey = parent.ContainerKey
	}

	for {
		id, err := newRandomID("t")
		if err != nil {
			return model.Task{}, err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE id = ?`, id).Scan(&n); err != nil {
			return model.Task{}, err
		}
		if n == 0 {
			t.ID = id
			break
		}
	}

	sibs, err := readSiblings(ctx, tx, parentID, t.ContainerKey)
	if err != nil {
		return model.Task{}, err
	}
	key := order.Last(order.Effective(order.Keys(sibs), order.DefaultStride), order.DefaultStride)
	t.OrderKey = &key

	if err := writeTask(ctx, tx, t); err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	s.log().Debug("task created", "task", t.ID, "container", t.ContainerKey, "parent", parentID)
	return t, nil
}

// ImportTasks replaces the whole task set.
func (s Store) ImportTasks(ctx context.Context, tasks []model.Task) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Replace-all; the patch log is kept as history.
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, t := range tasks {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return errors.New("import: task without id")
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
		if err := writeTask(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s Store) SetCompleted(ctx context.Context, id string, done bool) error {
	return s.update(ctx, id, func(t *model.Task) bool {
		if t.Completed == done {
			return false
		}
		t.Completed = done
		return true
	})
}

func (s Store) SetTitle(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("missing title")
	}
	return s.update(ctx, id, func(t *model.Task) bool {
		if t.Title == title {
			return false
		}
		t.Title = title
		return true
	})
}

func (s Store) update(ctx context.Context, id string, fn func(t *model.Task) bool) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := readTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if !fn(t) {
		return nil
	}
	t.UpdatedAt = time.Now().UTC()
	if err := writeTask(ctx, tx, *t); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyPatch is the single mutation primitive used by drags. A container
// change cascades to every descendant inside the same transaction.
func (s Store) ApplyPatch(ctx context.Context, id string, p model.Patch) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := readTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if p.SetParent && p.ParentID != nil && strings.TrimSpace(*p.ParentID) != "" {
		pid := strings.TrimSpace(*p.ParentID)
		f := txFinder{ctx: ctx, q: tx}
		if _, ok := f.FindTask(pid); !ok {
			return NotFoundError{Kind: "parent", ID: pid}
		}
		if tree.WouldCreateCycle(f, t.ID, pid) {
			return CycleError{TaskID: t.ID, ParentID: pid}
		}
	}

	now := time.Now().UTC()
	if p.Apply(t) {
		t.UpdatedAt = now
		if err := writeTask(ctx, tx, *t); err != nil {
			return err
		}
	}

	cascaded := 0
	if p.ContainerKey != nil {
		cascaded, err = cascadeContainer(ctx, tx, t.ID, *p.ContainerKey, now)
		if err != nil {
			return err
		}
	}
	if err := appendPatchLog(ctx, tx, t.ID, p, cascaded, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log().Debug("patch applied", "task", t.ID, "cascaded", cascaded)
	return nil
}

// SaveOrderKeys writes a batch of order keys (a renormalization plan) in one
// transaction. Each change is logged as its own patch.
func (s Store) SaveOrderKeys(ctx context.Context, keys map[string]float64) error {
	if len(keys) == 0 {
		return nil
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	now := time.Now().UTC()
	for _, id := range ids {
		t, err := readTask(ctx, tx, id)
		if err != nil {
			return err
		}
		k := keys[id]
		p := model.Patch{OrderKey: &k}
		if !p.Apply(t) {
			continue
		}
		t.UpdatedAt = now
		if err := writeTask(ctx, tx, *t); err != nil {
			return err
		}
		if err := appendPatchLog(ctx, tx, t.ID, p, 0, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowQueryer interface {
	queryer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readTask(ctx context.Context, q rowQueryer, id string) (*model.Task, error) {
	id = strings.TrimSpace(id)
	var js string
	err := q.QueryRowContext(ctx, `SELECT json FROM tasks WHERE id = ?`, id).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var t model.Task
	if err := json.Unmarshal([]byte(js), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func readSiblings(ctx context.Context, q queryer, parentID, containerKey string) ([]model.Task, error) {
	out, err := readJSONRows[model.Task](ctx, q, `SELECT json FROM tasks WHERE parent_id = ? AND container_key = ?`, parentID, containerKey)
	if err != nil {
		return nil, err
	}
	order.Sort(out)
	return out, nil
}

func writeTask(ctx context.Context, x execer, t model.Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var key sql.NullFloat64
	if t.OrderKey != nil {
		key = sql.NullFloat64{Float64: *t.OrderKey, Valid: true}
	}
	due := ""
	if t.Due != nil {
		due = strings.TrimSpace(t.Due.Date)
	}
	_, err = x.ExecContext(ctx, `INSERT OR REPLACE INTO tasks(id, parent_id, container_key, order_key, completed, due_date, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Parent(), t.ContainerKey, key, boolToInt(t.Completed), due, string(raw), t.UpdatedAt.UTC().UnixMilli())
	return err
}

func cascadeContainer(ctx context.Context, tx *sql.Tx, rootID, key string, now time.Time) (int, error) {
	n := 0
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		kids, err := readJSONRows[model.Task](ctx, tx, `SELECT json FROM tasks WHERE parent_id = ?`, cur)
		if err != nil {
			return n, err
		}
		for _, k := range kids {
			if seen[k.ID] {
				continue
			}
			seen[k.ID] = true
			queue = append(queue, k.ID)
			if k.ContainerKey == key {
				continue
			}
			k.ContainerKey = key
			k.UpdatedAt = now
			if err := writeTask(ctx, tx, k); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// txFinder lets the tree walks run inside a transaction.
type txFinder struct {
	ctx context.Context
	q   rowQueryer
}

func (f txFinder) FindTask(id string) (*model.Task, bool) {
	t, err := readTask(f.ctx, f.q, id)
	if err != nil {
		return nil, false
	}
	return t, true
}

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32 (lowercase, no padding).
func newRandomID(prefix string) (string, error) {
	var b [5]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return prefix + "-" + strings.ToLower(enc.EncodeToString(b[:])), nil
}
