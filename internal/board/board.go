package board

import (
	"sort"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/order"
)

type ContainerDef struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// Config is the resolved container configuration used for assembly.
type Config struct {
	Containers []ContainerDef
	// ShowUnassigned keeps the unassigned lane visible even when it is empty.
	ShowUnassigned bool
	// Location is used to resolve due dates; nil means time.Local.
	Location *time.Location
}

type Row struct {
	Task        model.Task `json:"task"`
	Depth       int        `json:"depth"`
	HasChildren bool       `json:"hasChildren,omitempty"`
	Overdue     bool       `json:"overdue,omitempty"`
}

type Container struct {
	Key        string                  `json:"key"`
	Label      string                  `json:"label"`
	Configured bool                    `json:"configured"`
	Roots      []model.Task            `json:"roots"`
	Children   map[string][]model.Task `json:"children,omitempty"`
	// Rows is the display order: each root followed by its subtree.
	Rows []Row `json:"rows"`
}

func (c Container) Empty() bool { return len(c.Roots) == 0 }

// Find returns the container with key.
func Find(cs []Container, key string) (Container, bool) {
	for _, c := range cs {
		if c.Key == key {
			return c, true
		}
	}
	return Container{}, false
}

// Assemble groups tasks into per-container forests.
//
// Configured containers come out in configured order even when empty; any
// other container key found in the data gets its own ad-hoc container after
// them (sorted by key), so no task is ever dropped from view. The unassigned
// lane leads the board when it has tasks or is configured.
func Assemble(tasks []model.Task, cfg Config, now time.Time) []Container {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	present := map[string]bool{}
	for _, t := range tasks {
		present[t.ID] = true
	}

	// Children are grouped under their parent regardless of their own key; a
	// child whose parent is missing is promoted to a root of its own lane.
	children := map[string][]model.Task{}
	rootsByKey := map[string][]model.Task{}
	for _, t := range tasks {
		if !t.IsRoot() && present[t.Parent()] && t.Parent() != t.ID {
			children[t.Parent()] = append(children[t.Parent()], t)
			continue
		}
		rootsByKey[t.ContainerKey] = append(rootsByKey[t.ContainerKey], t)
	}
	// Parent loops in corrupt data leave tasks unreachable from any root;
	// surface them as roots instead of hiding them.
	reached := map[string]bool{}
	var reach func(id string)
	reach = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, ch := range children[id] {
			reach(ch.ID)
		}
	}
	for _, rs := range rootsByKey {
		for _, r := range rs {
			reach(r.ID)
		}
	}
	for _, t := range tasks {
		if reached[t.ID] {
			continue
		}
		pid := t.Parent()
		kept := children[pid][:0]
		for _, ch := range children[pid] {
			if ch.ID != t.ID {
				kept = append(kept, ch)
			}
		}
		children[pid] = kept
		rootsByKey[t.ContainerKey] = append(rootsByKey[t.ContainerKey], t)
		reach(t.ID)
	}
	for pid := range children {
		order.Sort(children[pid])
	}

	out := make([]Container, 0, len(cfg.Containers)+len(rootsByKey)+1)
	used := map[string]bool{}
	add := func(key, label string, configured bool) {
		if used[key] {
			return
		}
		used[key] = true
		out = append(out, buildContainer(key, label, configured, rootsByKey[key], children, now, loc))
	}

	unassignedConfigured := cfg.ShowUnassigned
	for _, def := range cfg.Containers {
		if def.Key == model.UnassignedContainer {
			unassignedConfigured = true
		}
	}
	if unassignedConfigured || len(rootsByKey[model.UnassignedContainer]) > 0 {
		add(model.UnassignedContainer, model.UnassignedLabel, unassignedConfigured)
	}
	for _, def := range cfg.Containers {
		lbl := strings.TrimSpace(def.Label)
		if lbl == "" {
			lbl = def.Key
		}
		add(def.Key, lbl, true)
	}

	extra := make([]string, 0, len(rootsByKey))
	for k := range rootsByKey {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		add(k, k, false)
	}
	return out
}

func buildContainer(key, label string, configured bool, roots []model.Task, children map[string][]model.Task, now time.Time, loc *time.Location) Container {
	c := Container{
		Key:        key,
		Label:      label,
		Configured: configured,
		Roots:      append([]model.Task{}, roots...),
		Children:   map[string][]model.Task{},
		Rows:       []Row{},
	}
	sort.SliceStable(c.Roots, func(i, j int) bool {
		return compareDisplay(c.Roots[i], c.Roots[j], loc) < 0
	})

	seen := map[string]bool{}
	var walk func(t model.Task, depth int)
	walk = func(t model.Task, depth int) {
		if seen[t.ID] {
			return
		}
		seen[t.ID] = true
		kids := children[t.ID]
		c.Rows = append(c.Rows, Row{
			Task:        t,
			Depth:       depth,
			HasChildren: len(kids) > 0,
			Overdue:     isOverdue(t, now, loc),
		})
		if len(kids) > 0 {
			c.Children[t.ID] = kids
		}
		for _, ch := range kids {
			walk(ch, depth+1)
		}
	}
	for _, r := range c.Roots {
		walk(r, 0)
	}
	return c
}

// compareDisplay is the advisory root order: incomplete before complete, then
// earliest due first (so overdue tasks lead), undated last, then order key.
func compareDisplay(a, b model.Task, loc *time.Location) int {
	if a.Completed != b.Completed {
		if !a.Completed {
			return -1
		}
		return 1
	}
	da, oka := dueInstant(a, loc)
	db, okb := dueInstant(b, loc)
	switch {
	case oka && okb:
		if da.Before(db) {
			return -1
		}
		if da.After(db) {
			return 1
		}
	case oka:
		return -1
	case okb:
		return 1
	}
	return order.Compare(a, b)
}

func dueInstant(t model.Task, loc *time.Location) (time.Time, bool) {
	if t.Due == nil || strings.TrimSpace(t.Due.Date) == "" {
		return time.Time{}, false
	}
	ts, err := t.Due.Instant(loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func isOverdue(t model.Task, now time.Time, loc *time.Location) bool {
	if t.Completed {
		return false
	}
	ts, ok := dueInstant(t, loc)
	return ok && ts.Before(now)
}
