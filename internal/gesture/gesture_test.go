package gesture

import "testing"

func TestClassifier_StartsAsReorder(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	if c.Intent() != IntentReorder {
		t.Fatalf("expected initial intent reorder, got %s", c.Intent())
	}
	// First move only captures the reference, even far away.
	if got := c.Move(Point{X: 500, Y: 0}); got != IntentReorder {
		t.Fatalf("first move must not classify, got %s", got)
	}
}

func TestClassifier_RightwardBeyondThresholdReparents(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Move(Point{X: 10, Y: 10})
	c.Move(Point{X: 60, Y: 12})
	if got := c.Move(Point{X: 110, Y: 15}); got != IntentReparent {
		t.Fatalf("expected reparent after 100 rightward, got %s", got)
	}
	if d := c.Displacement(); d.X != 100 || d.Y != 5 {
		t.Fatalf("unexpected displacement %+v", d)
	}
}

func TestClassifier_VerticalDriftStaysReorder(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Move(Point{})
	for i := 1; i <= 20; i++ {
		got := c.Move(Point{X: float64(i) * 0.5, Y: float64(i) * 10})
		if got != IntentReorder {
			t.Fatalf("step %d: expected reorder under vertical dominance, got %s", i, got)
		}
	}
}

func TestClassifier_BetweenThresholdsKeepsState(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Move(Point{})
	c.Move(Point{X: 90})
	if c.Intent() != IntentReparent {
		t.Fatalf("expected reparent at 90")
	}
	if got := c.Move(Point{X: 65}); got != IntentReparent {
		t.Fatalf("between thresholds the intent must hold, got %s", got)
	}
	if got := c.Move(Point{X: 40}); got != IntentReorder {
		t.Fatalf("below reorder threshold expected reorder, got %s", got)
	}
	if got := c.Move(Point{X: 65}); got != IntentReorder {
		t.Fatalf("band must hold reorder too, got %s", got)
	}
}

func TestClassifier_LeftwardAndDiagonal(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Move(Point{X: 200})
	if got := c.Move(Point{X: 50}); got != IntentReorder {
		t.Fatalf("leftward motion reads as reorder, got %s", got)
	}
	c.Move(Point{X: 300, Y: 10})
	if c.Intent() != IntentReparent {
		t.Fatalf("expected reparent")
	}
	if got := c.Move(Point{X: 300, Y: 200}); got != IntentReorder {
		t.Fatalf("vertical dominance flips back to reorder, got %s", got)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	pts := []Point{{0, 0}, {30, 5}, {95, 10}, {70, 20}, {20, 80}, {120, 90}, {200, 100}}
	a := Replay(DefaultThresholds(), pts)
	b := Replay(DefaultThresholds(), pts)
	if len(a) != len(pts) {
		t.Fatalf("expected one intent per point")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay diverged at %d: %v vs %v", i, a, b)
		}
	}
	want := []Intent{IntentReorder, IntentReorder, IntentReparent, IntentReparent, IntentReorder, IntentReparent, IntentReparent}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, a)
		}
	}
}
