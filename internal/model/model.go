package model

import (
	"fmt"
	"strings"
	"time"
)

// UnassignedContainer is the container key of tasks that belong to no
// milestone/status lane.
const UnassignedContainer = ""

const UnassignedLabel = "(unassigned)"

type Task struct {
	ID           string   `json:"id"`
	ParentID     *string  `json:"parentId,omitempty"`
	ContainerKey string   `json:"containerKey"`
	OrderKey     *float64 `json:"orderKey,omitempty"`

	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Due       *DateTime `json:"due,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRoot reports whether the task has no parent reference.
func (t Task) IsRoot() bool {
	return t.ParentID == nil || strings.TrimSpace(*t.ParentID) == ""
}

// Parent returns the trimmed parent id, or "" for roots.
func (t Task) Parent() string {
	if t.IsRoot() {
		return ""
	}
	return strings.TrimSpace(*t.ParentID)
}

// DateTime represents an optional time attached to a date.
// If Time is nil, the value is date-only (no time semantics).
type DateTime struct {
	Date string  `json:"date"`           // YYYY-MM-DD
	Time *string `json:"time,omitempty"` // HH:MM
}

// Instant resolves the value in loc. Date-only values resolve to the end of
// that day so a task due "today" is not overdue until the day is over.
func (d DateTime) Instant(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date := strings.TrimSpace(d.Date)
	if d.Time == nil || strings.TrimSpace(*d.Time) == "" {
		day, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q: %w", d.Date, err)
		}
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+strings.TrimSpace(*d.Time), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due time %q %q: %w", d.Date, *d.Time, err)
	}
	return ts, nil
}

// Patch is the set of fields a drag proposes to the task store.
//
// ParentID is only applied when SetParent is true; a nil ParentID then makes
// the task a root. Nil ContainerKey / OrderKey leave the field untouched.
type Patch struct {
	SetParent    bool     `json:"setParent,omitempty"`
	ParentID     *string  `json:"parentId,omitempty"`
	ContainerKey *string  `json:"containerKey,omitempty"`
	OrderKey     *float64 `json:"orderKey,omitempty"`
}

func (p Patch) Empty() bool {
	return !p.SetParent && p.ContainerKey == nil && p.OrderKey == nil
}

// Apply writes the patch fields into t and reports whether anything changed.
func (p Patch) Apply(t *Task) bool {
	if t == nil {
		return false
	}
	changed := false
	if p.SetParent {
		next := ""
		if p.ParentID != nil {
			next = strings.TrimSpace(*p.ParentID)
		}
		if t.Parent() != next {
			changed = true
		}
		if next == "" {
			t.ParentID = nil
		} else {
			t.ParentID = &next
		}
	}
	if p.ContainerKey != nil && t.ContainerKey != *p.ContainerKey {
		t.ContainerKey = *p.ContainerKey
		changed = true
	}
	if p.OrderKey != nil {
		if t.OrderKey == nil || *t.OrderKey != *p.OrderKey {
			changed = true
		}
		k := *p.OrderKey
		t.OrderKey = &k
	}
	return changed
}

func StrPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
