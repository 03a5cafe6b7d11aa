package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"taskboard/internal/board"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
)

// RenderOptions controls board rendering. The zero value renders a plain
// board without selection or drag feedback.
type RenderOptions struct {
	Width    int
	Selected string
	Dragging string
	Intent   gesture.Intent
	Target   *dropzone.Target
}

// RenderBoard draws containers side by side.
func RenderBoard(cs []board.Container, opts RenderOptions) string {
	n := len(cs)
	if n == 0 {
		return styleMuted().Render("(no containers)")
	}
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	gap := 2
	colW := (width - gap*(n-1)) / n
	if colW < 14 {
		colW = 14
	}

	cols := make([]string, 0, n*2)
	for i, c := range cs {
		if i > 0 {
			cols = append(cols, strings.Repeat(" ", gap))
		}
		cols = append(cols, renderColumn(c, colW, opts))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderColumn(c board.Container, w int, opts RenderOptions) string {
	t := opts.Target
	headerStyle := lipgloss.NewStyle().Bold(true).Width(w).Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	if t != nil && (t.Kind == dropzone.KindIntoContainer || t.Kind == dropzone.KindIntoEmptyContainer) && t.Ref == c.Key {
		headerStyle = headerStyle.Foreground(colorAccentFg).Background(colorAccent)
	}
	label := fmt.Sprintf("%s (%d)", c.Label, len(c.Rows))
	lines := []string{headerStyle.Render(xansi.Truncate(label, w-2, "…"))}

	if len(c.Rows) == 0 {
		lines = append(lines, styleMuted().Width(w).Padding(0, 1).Render("empty"))
	}
	inner := w - 2
	marker := lipgloss.NewStyle().Foreground(colorAccent).Render(strings.Repeat("─", max(inner, 1)))
	for _, r := range c.Rows {
		id := r.Task.ID
		if t != nil && t.Kind == dropzone.KindBeforeSibling && t.Ref == id {
			lines = append(lines, " "+marker)
		}
		lines = append(lines, renderRow(r, w, opts))
		if t != nil && t.Kind == dropzone.KindAfterSibling && t.Ref == id {
			lines = append(lines, " "+marker)
		}
	}
	return lipgloss.NewStyle().Width(w).Render(strings.Join(lines, "\n"))
}

func renderRow(r board.Row, w int, opts RenderOptions) string {
	box := "[ ]"
	if r.Task.Completed {
		box = "[x]"
	}
	prefix := strings.Repeat("  ", r.Depth) + box + " "
	title := strings.TrimSpace(r.Task.Title)
	if title == "" {
		title = r.Task.ID
	}
	if r.HasChildren {
		title += " ▸"
	}
	text := xansi.Truncate(prefix+title, w-2, "…")

	st := lipgloss.NewStyle().Width(w).Padding(0, 1)
	switch {
	case opts.Dragging == r.Task.ID:
		st = st.Italic(true).Foreground(colorMuted)
	case opts.Target != nil && opts.Target.Kind == dropzone.KindIntoTask && opts.Target.Ref == r.Task.ID:
		st = st.Bold(true).Foreground(colorAccentFg).Background(colorReparent)
	case opts.Selected == r.Task.ID:
		st = st.Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
	case r.Overdue:
		st = st.Foreground(colorOverdue)
	}
	return st.Render(text)
}

func padRight(s string, w int) string {
	if gap := w - xansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
