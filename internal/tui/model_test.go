package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"taskboard/internal/board"
	"taskboard/internal/drag"
	"taskboard/internal/model"
)

type memStore struct {
	mu    sync.Mutex
	tasks []model.Task
	calls int
}

func (s *memStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task{}, s.tasks...), nil
}

func (s *memStore) ApplyPatch(ctx context.Context, id string, p model.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			p.Apply(&s.tasks[i])
		}
	}
	return nil
}

func newTestModel(t *testing.T) (Model, *drag.Engine, *memStore) {
	t.Helper()
	st := &memStore{tasks: []model.Task{
		{ID: "a", Title: "Alpha", ContainerKey: "todo", OrderKey: model.FloatPtr(100)},
		{ID: "b", Title: "Bravo", ContainerKey: "todo", OrderKey: model.FloatPtr(200)},
		{ID: "c", Title: "Charlie", ContainerKey: "done", OrderKey: model.FloatPtr(100)},
	}}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := drag.NewEngine(st, drag.EngineOptions{
		Board:  board.Config{Containers: []board.ContainerDef{{Key: "todo", Label: "To do"}, {Key: "done", Label: "Done"}}},
		Logger: lg,
	})
	if err := e.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	m := New(e, Options{Logger: lg})
	mAny, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return mAny.(Model), e, st
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		mAny, cmd := m.Update(k)
		m = mAny.(Model)
		if cmd != nil {
			if msg := cmd(); msg != nil {
				mAny, _ = m.Update(msg)
				m = mAny.(Model)
			}
		}
	}
	return m
}

var (
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func rootOrder(e *drag.Engine, key string) string {
	var ids []string
	for _, t := range e.View().Siblings("", key, "") {
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, ",")
}

func TestPickUpMoveUpAndDropReorders(t *testing.T) {
	m, e, st := newTestModel(t)
	m = press(t, m, keyDown)
	if m.selectedID != "b" {
		t.Fatalf("expected b selected, got %q", m.selectedID)
	}
	m = press(t, m, keySpace)
	if m.drag == nil || m.drag.ActiveTaskID != "b" {
		t.Fatalf("expected drag of b, got %+v", m.drag)
	}
	m = press(t, m, keyUp, keyUp)
	if m.drag.Target == nil || m.drag.Target.String() != "before-sibling(a)" {
		t.Fatalf("expected before-sibling(a), got %+v", m.drag.Target)
	}
	m = press(t, m, keyEnter)
	e.Wait()
	if m.drag != nil {
		t.Fatalf("expected drag to end")
	}
	if got := rootOrder(e, "todo"); got != "b,a" {
		t.Fatalf("expected b,a got %s", got)
	}
	if st.calls != 1 {
		t.Fatalf("expected one store call, got %d", st.calls)
	}
	if m.selectedID != "b" {
		t.Fatalf("expected selection to follow b, got %q", m.selectedID)
	}
}

func TestRightwardDragReparents(t *testing.T) {
	m, e, _ := newTestModel(t)
	m = press(t, m, keyDown, keySpace, keyRight, keyRight, keyRight, keyUp, keyUp)
	if m.drag.Intent != "reparent" {
		t.Fatalf("expected reparent intent, got %s", m.drag.Intent)
	}
	if m.drag.Target == nil || m.drag.Target.String() != "into-task(a)" {
		t.Fatalf("expected into-task(a), got %+v", m.drag.Target)
	}
	m = press(t, m, keyEnter)
	e.Wait()
	b, _ := e.View().FindTask("b")
	if b.Parent() != "a" {
		t.Fatalf("expected b under a, got %q", b.Parent())
	}
	if !strings.Contains(m.View(), "Bravo") {
		t.Fatalf("expected b still rendered")
	}
}

func TestEscCancelsWithoutStoreCall(t *testing.T) {
	m, e, st := newTestModel(t)
	m = press(t, m, keySpace, keyDown, keyDown, keyEsc)
	if m.drag != nil || e.ActiveDragState() != nil {
		t.Fatalf("expected no active drag")
	}
	if st.calls != 0 {
		t.Fatalf("expected no store calls, got %d", st.calls)
	}
}

func TestLaneKeysMoveToContainer(t *testing.T) {
	m, e, _ := newTestModel(t)
	m = press(t, m, runes("]"))
	e.Wait()
	a, _ := e.View().FindTask("a")
	if a.ContainerKey != "done" || !a.IsRoot() {
		t.Fatalf("expected a moved to done, got %+v", a)
	}
	if m.col != 1 || m.selectedID != "a" {
		t.Fatalf("expected selection to follow a into done, got col=%d sel=%q", m.col, m.selectedID)
	}
	if got := rootOrder(e, "done"); got != "c,a" {
		t.Fatalf("expected a appended after c, got %s", got)
	}
}

func TestViewShowsContainersAndDragStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	v := m.View()
	for _, want := range []string{"To do (2)", "Done (1)", "Alpha", "Charlie"} {
		if !strings.Contains(v, want) {
			t.Fatalf("expected %q in view:\n%s", want, v)
		}
	}
	m = press(t, m, keySpace)
	if !strings.Contains(m.View(), "dragging a") {
		t.Fatalf("expected drag status in view")
	}
}

func TestZonesCoverRowsAndHeaders(t *testing.T) {
	cs := []board.Container{
		{Key: "todo", Label: "todo", Roots: []model.Task{{ID: "a"}}, Rows: []board.Row{{Task: model.Task{ID: "a"}}}},
		{Key: "done", Label: "done"},
	}
	zs := Zones(cs)
	if len(zs) != 5 {
		t.Fatalf("expected 5 zones, got %d", len(zs))
	}
	if zs[4].Target.String() != "into-empty-container(done)" {
		t.Fatalf("expected empty container zone last, got %s", zs[4].Target)
	}
	if !zs[2].Rect.Contains(RowCenter(0, 0)) {
		t.Fatalf("expected row center inside the body zone")
	}
	if col, row := cellAt(RowCenter(0, 0)); col != 0 || row != 0 {
		t.Fatalf("expected cell 0,0 got %d,%d", col, row)
	}
}
