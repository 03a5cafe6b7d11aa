package board

import (
	"testing"
	"time"

	"taskboard/internal/model"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func rowIDs(c Container) []string {
	out := make([]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		out = append(out, r.Task.ID)
	}
	return out
}

func sameIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAssemble_ConfiguredContainersAlwaysPresent(t *testing.T) {
	cfg := Config{Containers: []ContainerDef{{Key: "m1", Label: "Milestone 1"}, {Key: "m2"}}}
	cs := Assemble(nil, cfg, now)
	if len(cs) != 2 {
		t.Fatalf("expected 2 containers for empty data, got %d", len(cs))
	}
	if cs[0].Key != "m1" || cs[0].Label != "Milestone 1" || !cs[0].Configured || !cs[0].Empty() {
		t.Fatalf("unexpected first container %+v", cs[0])
	}
	if cs[1].Label != "m2" {
		t.Fatalf("expected label to default to key, got %q", cs[1].Label)
	}
}

func TestAssemble_UnexpectedKeysGetAdHocContainers(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", ContainerKey: "zeta"},
		{ID: "b", ContainerKey: "m1"},
		{ID: "c", ContainerKey: "alpha"},
		{ID: "d", ContainerKey: model.UnassignedContainer},
	}
	cs := Assemble(tasks, Config{Containers: []ContainerDef{{Key: "m1"}}}, now)
	var keys []string
	for _, c := range cs {
		keys = append(keys, c.Key)
	}
	sameIDs(t, keys, []string{"", "m1", "alpha", "zeta"})
	if cs[0].Configured || cs[2].Configured {
		t.Fatalf("ad-hoc containers must not be marked configured")
	}
	if cs[0].Label != model.UnassignedLabel {
		t.Fatalf("expected unassigned label, got %q", cs[0].Label)
	}
}

func TestAssemble_ShowUnassignedWhenEmpty(t *testing.T) {
	cs := Assemble(nil, Config{ShowUnassigned: true}, now)
	if len(cs) != 1 || cs[0].Key != model.UnassignedContainer || !cs[0].Configured {
		t.Fatalf("expected a configured empty unassigned lane, got %+v", cs)
	}
}

func TestAssemble_DisplayOrderPolicy(t *testing.T) {
	due := func(d string) *model.DateTime { return &model.DateTime{Date: d} }
	tasks := []model.Task{
		{ID: "done", ContainerKey: "k", OrderKey: model.FloatPtr(1), Completed: true, Due: due("2026-01-01")},
		{ID: "nodue", ContainerKey: "k", OrderKey: model.FloatPtr(2)},
		{ID: "soon", ContainerKey: "k", OrderKey: model.FloatPtr(3), Due: due("2026-03-20")},
		{ID: "overdue", ContainerKey: "k", OrderKey: model.FloatPtr(4), Due: due("2026-03-01")},
		{ID: "nodue2", ContainerKey: "k", OrderKey: model.FloatPtr(1)},
	}
	cs := Assemble(tasks, Config{Containers: []ContainerDef{{Key: "k"}}}, now)
	sameIDs(t, rowIDs(cs[0]), []string{"overdue", "soon", "nodue2", "nodue", "done"})
	if !cs[0].Rows[0].Overdue || cs[0].Rows[1].Overdue {
		t.Fatalf("unexpected overdue flags: %+v", cs[0].Rows[:2])
	}
}

func TestAssemble_ChildrenFollowParentByOrderKey(t *testing.T) {
	p := model.StrPtr("p")
	tasks := []model.Task{
		{ID: "p", ContainerKey: "k", OrderKey: model.FloatPtr(1)},
		{ID: "c2", ParentID: p, ContainerKey: "k", OrderKey: model.FloatPtr(200), Due: &model.DateTime{Date: "2020-01-01"}},
		{ID: "c1", ParentID: p, ContainerKey: "k", OrderKey: model.FloatPtr(100), Completed: true},
		{ID: "g", ParentID: model.StrPtr("c1"), ContainerKey: "k"},
		{ID: "q", ContainerKey: "k", OrderKey: model.FloatPtr(2)},
	}
	cs := Assemble(tasks, Config{Containers: []ContainerDef{{Key: "k"}}}, now)
	c := cs[0]
	sameIDs(t, rowIDs(c), []string{"p", "c1", "g", "c2", "q"})
	if c.Rows[2].Depth != 2 || !c.Rows[1].HasChildren {
		t.Fatalf("unexpected depth/children flags: %+v", c.Rows)
	}
	if len(c.Roots) != 2 || len(c.Children["p"]) != 2 {
		t.Fatalf("unexpected partition: roots=%d children=%d", len(c.Roots), len(c.Children["p"]))
	}
}

func TestAssemble_OrphansAndLoopsAreNotDropped(t *testing.T) {
	tasks := []model.Task{
		{ID: "orphan", ParentID: model.StrPtr("gone"), ContainerKey: "k"},
		{ID: "x", ParentID: model.StrPtr("y"), ContainerKey: "k"},
		{ID: "y", ParentID: model.StrPtr("x"), ContainerKey: "k"},
	}
	cs := Assemble(tasks, Config{Containers: []ContainerDef{{Key: "k"}}}, now)
	seen := map[string]bool{}
	for _, r := range cs[0].Rows {
		seen[r.Task.ID] = true
	}
	for _, id := range []string{"orphan", "x", "y"} {
		if !seen[id] {
			t.Fatalf("expected %s to be visible, rows=%v", id, rowIDs(cs[0]))
		}
	}
}
