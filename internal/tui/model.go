// Package tui is a keyboard-driven board. A virtual pointer stands in for
// the mouse: space picks a task up, the arrow keys move the pointer, enter
// drops and esc cancels.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/board"
	"taskboard/internal/drag"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
)

type Options struct {
	Logger *slog.Logger
	// Context bounds reloads and is the parent of persistence calls.
	Context context.Context
}

type Model struct {
	engine *drag.Engine
	log    *slog.Logger
	ctx    context.Context
	keys   keyMap
	help   help.Model

	width  int
	height int

	containers []board.Container
	col        int
	row        int
	selectedID string

	pointer gesture.Point
	drag    *drag.DragState

	status     string
	statusWarn bool
}

type reloadedMsg struct{ err error }

type persistedMsg struct {
	taskID string
	err    error
}

func New(e *drag.Engine, opts Options) Model {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{engine: e, log: lg, ctx: ctx, keys: defaultKeyMap(), help: help.New(), width: 100, height: 30}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case reloadedMsg:
		if msg.err != nil {
			m.setWarn("reload failed: " + msg.err.Error())
		} else {
			m.setStatus("reloaded")
		}
		m.refresh()
		return m, nil
	case persistedMsg:
		if msg.err != nil {
			m.setWarn(fmt.Sprintf("save of %s failed; press r to reload", msg.taskID))
		}
		return m, nil
	case tea.KeyMsg:
		if m.drag != nil {
			return m.updateDragging(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.selectAt(m.col, m.row-1)
	case key.Matches(msg, m.keys.Down):
		m.selectAt(m.col, m.row+1)
	case key.Matches(msg, m.keys.Left):
		m.selectAt(m.col-1, m.row)
	case key.Matches(msg, m.keys.Right):
		m.selectAt(m.col+1, m.row)
	case key.Matches(msg, m.keys.Reload):
		return m, m.reloadCmd()
	case key.Matches(msg, m.keys.Pick):
		m.pickUp()
	case key.Matches(msg, m.keys.PrevLane):
		return m, m.moveToLane(-1)
	case key.Matches(msg, m.keys.NextLane):
		return m, m.moveToLane(1)
	}
	return m, nil
}

func (m Model) updateDragging(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.engine.OnDragCancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.engine.OnDragCancel()
		m.drag = nil
		m.setStatus("drag cancelled")
	case key.Matches(msg, m.keys.Drop):
		out, err := m.engine.OnDrop(m.ctx)
		m.drag = nil
		if err != nil {
			m.setWarn(err.Error())
			return m, nil
		}
		return m, m.outcome(out)
	case key.Matches(msg, m.keys.Up):
		m.movePointer(0, -StepY)
	case key.Matches(msg, m.keys.Down):
		m.movePointer(0, StepY)
	case key.Matches(msg, m.keys.Left):
		m.movePointer(-StepX, 0)
	case key.Matches(msg, m.keys.Right):
		m.movePointer(StepX, 0)
	}
	return m, nil
}

func (m *Model) pickUp() {
	id := m.selectedID
	if id == "" {
		return
	}
	if err := m.engine.OnDragStart(id); err != nil {
		m.setWarn(err.Error())
		return
	}
	m.pointer = RowCenter(m.col, m.row)
	st, err := m.engine.OnDragMove(m.pointer, Zones(m.containers))
	if err != nil {
		m.engine.OnDragCancel()
		m.setWarn(err.Error())
		return
	}
	m.drag = &st
	m.setStatus("")
}

func (m *Model) movePointer(dx, dy float64) {
	m.pointer = gesture.Point{X: m.pointer.X + dx, Y: m.pointer.Y + dy}
	st, err := m.engine.OnDragMove(m.pointer, nil)
	if err != nil {
		m.drag = nil
		m.setWarn(err.Error())
		return
	}
	m.drag = &st
}

// moveToLane drops the selected task onto the neighboring container without
// a pointer gesture.
func (m *Model) moveToLane(delta int) tea.Cmd {
	if m.selectedID == "" {
		return nil
	}
	to := m.col + delta
	if to < 0 || to >= len(m.containers) {
		return nil
	}
	c := m.containers[to]
	target := dropzone.IntoContainer(c.Key)
	if c.Empty() {
		target = dropzone.IntoEmptyContainer(c.Key)
	}
	if err := m.engine.OnDragStart(m.selectedID); err != nil {
		m.setWarn(err.Error())
		return nil
	}
	out, err := m.engine.OnDragEnd(m.ctx, &target)
	if err != nil {
		m.setWarn(err.Error())
		return nil
	}
	return m.outcome(out)
}

func (m *Model) outcome(out drag.Outcome) tea.Cmd {
	switch out.Kind {
	case drag.OutcomeCommitted:
		m.setStatus("moved")
		if out.Degraded {
			m.setWarn("order keys are crowded; run `taskboard renormalize`")
		}
	case drag.OutcomeRejected:
		var rej drag.RejectError
		if errors.As(out.Err, &rej) {
			m.setStatus("drop ignored")
		} else if out.Err != nil {
			m.setWarn(out.Err.Error())
		}
	case drag.OutcomeNoop:
		m.setStatus("no change")
	default:
		m.setStatus("drag cancelled")
	}
	m.refresh()
	if out.Result == nil {
		return nil
	}
	res := out.Result
	id := out.TaskID
	return func() tea.Msg {
		return persistedMsg{taskID: id, err: <-res}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return reloadedMsg{err: e.Reload(ctx)}
	}
}

// refresh reassembles the board and keeps the selection on the same task.
func (m *Model) refresh() {
	m.containers = m.engine.VisibleContainers()
	if m.selectedID != "" {
		for ci, c := range m.containers {
			for ri, r := range c.Rows {
				if r.Task.ID == m.selectedID {
					m.col, m.row = ci, ri
					return
				}
			}
		}
	}
	m.selectAt(m.col, m.row)
}

func (m *Model) selectAt(col, row int) {
	if len(m.containers) == 0 {
		m.col, m.row, m.selectedID = 0, 0, ""
		return
	}
	col = clamp(col, 0, len(m.containers)-1)
	rows := m.containers[col].Rows
	if len(rows) == 0 {
		m.col, m.row, m.selectedID = col, 0, ""
		return
	}
	row = clamp(row, 0, len(rows)-1)
	m.col, m.row, m.selectedID = col, row, rows[row].Task.ID
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Model) setStatus(s string) { m.status, m.statusWarn = s, false }

func (m *Model) setWarn(s string) {
	m.status, m.statusWarn = s, true
	m.log.Warn(s)
}

func (m Model) View() string {
	opts := RenderOptions{Width: m.width, Selected: m.selectedID}
	if m.drag != nil {
		opts.Dragging = m.drag.ActiveTaskID
		opts.Intent = m.drag.Intent
		opts.Target = m.drag.Target
	}
	var b strings.Builder
	b.WriteString(RenderBoard(m.containers, opts))
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	if d := m.drag; d != nil {
		intent := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
		if d.Intent == gesture.IntentReparent {
			intent = intent.Foreground(colorReparent)
		}
		parts = append(parts, "dragging "+d.ActiveTaskID, intent.Render(string(d.Intent)))
		if d.Target != nil {
			parts = append(parts, "→ "+d.Target.String())
		}
		parts = append(parts, styleMuted().Render(fmt.Sprintf("Δ %.0f,%.0f", d.Displacement.X, d.Displacement.Y)))
	}
	if m.engine.Stale() {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorWarn).Render("unsaved changes (r reloads)"))
	}
	if m.status != "" {
		st := styleMuted()
		if m.statusWarn {
			st = lipgloss.NewStyle().Foreground(colorWarn)
		}
		parts = append(parts, st.Render(m.status))
	}
	return padRight(strings.Join(parts, "  "), m.width)
}

// Run starts the interactive board on the alternate screen.
func Run(e *drag.Engine, opts Options) error {
	applyColorProfilePreference()
	p := tea.NewProgram(New(e, opts), tea.WithAltScreen())
	_, err := p.Run()
	e.OnDragCancel()
	e.Wait()
	return err
}
