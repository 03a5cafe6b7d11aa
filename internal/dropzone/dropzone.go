// Package dropzone resolves the pointer onto one drop target out of the zones
// the presentation layer reports.
package dropzone

import (
	"fmt"
	"math"
	"strings"

	"taskboard/internal/gesture"
)

type Kind string

const (
	KindBeforeSibling      Kind = "before-sibling"
	KindAfterSibling       Kind = "after-sibling"
	KindIntoTask           Kind = "into-task"
	KindIntoContainer      Kind = "into-container"
	KindIntoEmptyContainer Kind = "into-empty-container"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBeforeSibling, KindAfterSibling, KindIntoTask, KindIntoContainer, KindIntoEmptyContainer:
		return true
	default:
		return false
	}
}

// TaskRef reports whether the kind references a task (as opposed to a
// container key).
func (k Kind) TaskRef() bool {
	switch k {
	case KindBeforeSibling, KindAfterSibling, KindIntoTask:
		return true
	default:
		return false
	}
}

// Target is a drop target. Ref is a task id for sibling and into-task kinds
// and a container key for the container kinds.
type Target struct {
	Kind Kind   `json:"kind"`
	Ref  string `json:"ref"`
}

func BeforeSibling(taskID string) Target { return Target{Kind: KindBeforeSibling, Ref: taskID} }
func AfterSibling(taskID string) Target  { return Target{Kind: KindAfterSibling, Ref: taskID} }
func IntoTask(taskID string) Target      { return Target{Kind: KindIntoTask, Ref: taskID} }
func IntoContainer(key string) Target    { return Target{Kind: KindIntoContainer, Ref: key} }
func IntoEmptyContainer(key string) Target {
	return Target{Kind: KindIntoEmptyContainer, Ref: key}
}

func (t Target) String() string { return fmt.Sprintf("%s(%s)", t.Kind, t.Ref) }

// ParseTarget reads "kind:ref", e.g. "before-sibling:t-abc" or
// "into-container:todo". The ref of a container kind may be empty (the
// unassigned lane); task kinds need one.
func ParseTarget(s string) (Target, error) {
	kind, ref, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Target{}, fmt.Errorf("invalid drop target %q (want kind:ref)", s)
	}
	t := Target{Kind: Kind(strings.TrimSpace(kind)), Ref: strings.TrimSpace(ref)}
	if !t.Kind.Valid() {
		return Target{}, fmt.Errorf("unknown drop target kind %q", kind)
	}
	if t.Kind.TaskRef() && t.Ref == "" {
		return Target{}, fmt.Errorf("drop target %s needs a task id", t.Kind)
	}
	return t, nil
}

// Rect is a half-open bounding box: [X, X+W) x [Y, Y+H).
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Contains(p gesture.Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

func (r Rect) Center() gesture.Point {
	return gesture.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

type Zone struct {
	Target Target `json:"target"`
	Rect   Rect   `json:"rect"`
}

// Eligible reports whether zones of kind take part in resolution under intent.
func Eligible(kind Kind, intent gesture.Intent) bool {
	switch intent {
	case gesture.IntentReparent:
		return kind == KindIntoTask
	default:
		switch kind {
		case KindBeforeSibling, KindAfterSibling, KindIntoContainer, KindIntoEmptyContainer:
			return true
		default:
			return false
		}
	}
}

// Filter keeps the zones eligible under intent, in input order.
func Filter(zones []Zone, intent gesture.Intent) []Zone {
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		if Eligible(z.Target.Kind, intent) {
			out = append(out, z)
		}
	}
	return out
}

// Resolve picks the drop target for p. Zones are filtered by intent first;
// the first eligible zone containing p wins, otherwise the eligible zone with
// the nearest center. ok is false when no eligible zone exists.
func Resolve(p gesture.Point, zones []Zone, intent gesture.Intent) (Target, bool) {
	eligible := Filter(zones, intent)
	if len(eligible) == 0 {
		return Target{}, false
	}
	for _, z := range eligible {
		if z.Rect.Contains(p) {
			return z.Target, true
		}
	}
	best := 0
	bestD := math.Inf(1)
	for i, z := range eligible {
		c := z.Rect.Center()
		d := math.Hypot(c.X-p.X, c.Y-p.Y)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return eligible[best].Target, true
}
