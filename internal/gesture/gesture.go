// Package gesture infers whether an in-progress drag means "reorder" or
// "reparent" from cumulative pointer displacement.
package gesture

import "math"

// Intent is what a drop would do if the pointer were released now.
type Intent string

const (
	IntentReorder  Intent = "reorder"
	IntentReparent Intent = "reparent"
)

// Default thresholds, in screen units of rightward displacement.
const (
	DefaultReparentThreshold = 80.0
	DefaultReorderThreshold  = 50.0
)

// Point is a pointer position in screen units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Thresholds are in screen units. Between Reorder and Reparent the current
// intent is kept.
type Thresholds struct {
	Reparent float64 `json:"reparent"`
	Reorder  float64 `json:"reorder"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Reparent: DefaultReparentThreshold, Reorder: DefaultReorderThreshold}
}

// Classifier is the per-drag intent state machine. The zero value is not
// usable; use NewClassifier.
type Classifier struct {
	th     Thresholds
	intent Intent

	origin    Point
	hasOrigin bool
	delta     Point
}

// NewClassifier returns a classifier in the reorder state. Non-positive
// thresholds fall back to the defaults.
func NewClassifier(th Thresholds) *Classifier {
	if !(th.Reparent > 0) {
		th.Reparent = DefaultReparentThreshold
	}
	if !(th.Reorder > 0) {
		th.Reorder = DefaultReorderThreshold
	}
	return &Classifier{th: th, intent: IntentReorder}
}

// Intent returns the intent after the last move.
func (c *Classifier) Intent() Intent { return c.intent }

// Displacement is the cumulative delta from the reference position.
func (c *Classifier) Displacement() Point { return c.delta }

// Move feeds one pointer position and returns the intent after it.
//
// The first move only captures the reference position: the drag-start event
// carries no reliable origin.
func (c *Classifier) Move(p Point) Intent {
	if !c.hasOrigin {
		c.origin = p
		c.hasOrigin = true
		c.delta = Point{}
		return c.intent
	}
	c.delta = p.Sub(c.origin)
	dx, dy := c.delta.X, c.delta.Y
	adx, ady := math.Abs(dx), math.Abs(dy)

	switch {
	case dx > c.th.Reparent && adx > ady:
		c.intent = IntentReparent
	case ady > adx || dx < c.th.Reorder:
		c.intent = IntentReorder
	}
	return c.intent
}

// Replay runs a fresh classifier over points and returns the intent after
// each one.
func Replay(th Thresholds, points []Point) []Intent {
	c := NewClassifier(th)
	out := make([]Intent, 0, len(points))
	for _, p := range points {
		out = append(out, c.Move(p))
	}
	return out
}
