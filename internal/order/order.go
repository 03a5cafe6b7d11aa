// Package order assigns fractional order keys within a sibling group.
//
// Keys are float64 values compared numerically. Inserting between two keys
// takes the midpoint, so reordering touches only the moved task. Repeated
// insertion into the same gap eventually exhausts float64 precision; Between
// reports that case so callers can schedule a Respace of the group.
package order

import (
	"math"
	"sort"

	"taskboard/internal/model"
)

// DefaultStride is the spacing of seeded keys and the offset used at the
// open ends of a group.
const DefaultStride = 1000.0

func usable(k *float64) bool {
	return k != nil && !math.IsNaN(*k) && !math.IsInf(*k, 0)
}

// Valid reports whether k is a present, finite key. Compare sorts tasks
// without one after every keyed sibling.
func Valid(k *float64) bool { return usable(k) }

// Between returns a key for a slot between before and after. Either bound may
// be nil (open end). ok is false when no representable value lies strictly
// between the bounds (precision exhausted, or before >= after); the key is
// then before+stride, which keeps the new task after its predecessor but may
// overshoot the successor. When the gap is exhausted the bounds are adjacent
// floats, so neither is nearer to the slot; the lower bound is used because an
// insertion is always anchored to the task it follows.
func Between(before, after *float64, stride float64) (key float64, ok bool) {
	if !(stride > 0) || math.IsInf(stride, 0) {
		stride = DefaultStride
	}
	hasBefore := usable(before)
	hasAfter := usable(after)
	switch {
	case !hasBefore && !hasAfter:
		return stride, true
	case !hasBefore:
		return *after - stride, true
	case !hasAfter:
		return *before + stride, true
	}
	a, b := *before, *after
	if a < b {
		mid := a + (b-a)/2
		if a < mid && mid < b {
			return mid, true
		}
	}
	return a + stride, false
}

// NextKey is Between with the default stride, dropping the exhaustion signal.
func NextKey(before, after *float64) float64 {
	k, _ := Between(before, after, DefaultStride)
	return k
}

// SeedSequence returns count keys spaced by DefaultStride, starting at one
// stride.
func SeedSequence(count int) []float64 {
	return seed(count, DefaultStride)
}

func seed(count int, stride float64) []float64 {
	if count <= 0 {
		return []float64{}
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = stride * float64(i+1)
	}
	return out
}

// Effective returns a usable key for every position of an already sorted group.
// A group with no keys at all is seeded positionally; an absent key in a
// partially keyed group continues one stride after its predecessor.
func Effective(keys []*float64, stride float64) []float64 {
	if !(stride > 0) {
		stride = DefaultStride
	}
	keyed := false
	for _, k := range keys {
		if usable(k) {
			keyed = true
			break
		}
	}
	if !keyed {
		return seed(len(keys), stride)
	}
	out := make([]float64, len(keys))
	prev := 0.0
	havePrev := false
	for i, k := range keys {
		switch {
		case usable(k):
			out[i] = *k
		case havePrev:
			out[i] = prev + stride
		default:
			out[i] = stride
		}
		prev = out[i]
		havePrev = true
	}
	return out
}

// First returns a key that sorts before every key in keys.
func First(keys []float64, stride float64) float64 {
	if len(keys) == 0 {
		k, _ := Between(nil, nil, stride)
		return k
	}
	min := keys[0]
	for _, k := range keys[1:] {
		if k < min {
			min = k
		}
	}
	k, _ := Between(nil, &min, stride)
	return k
}

// Last returns a key that sorts after every key in keys.
func Last(keys []float64, stride float64) float64 {
	if len(keys) == 0 {
		k, _ := Between(nil, nil, stride)
		return k
	}
	max := keys[0]
	for _, k := range keys[1:] {
		if k > max {
			max = k
		}
	}
	k, _ := Between(&max, nil, stride)
	return k
}

// Compare orders tasks within a sibling group: keyed tasks first by key, then
// unkeyed tasks; equal keys fall back to ID so the order is strict.
func Compare(a, b model.Task) int {
	ka, kb := usable(a.OrderKey), usable(b.OrderKey)
	switch {
	case ka && kb:
		if *a.OrderKey < *b.OrderKey {
			return -1
		}
		if *a.OrderKey > *b.OrderKey {
			return 1
		}
	case ka:
		return -1
	case kb:
		return 1
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

// Sort sorts tasks in place using Compare.
func Sort(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return Compare(tasks[i], tasks[j]) < 0 })
}

// Keys returns the order keys of tasks in their current slice order.
func Keys(tasks []model.Task) []*float64 {
	out := make([]*float64, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].OrderKey
	}
	return out
}

// Respace plans a re-normalization of one sibling group: tasks keep their
// current relative order and receive stride multiples. Only tasks whose key
// actually changes are returned.
func Respace(tasks []model.Task, stride float64) map[string]float64 {
	if !(stride > 0) {
		stride = DefaultStride
	}
	cur := append([]model.Task{}, tasks...)
	Sort(cur)
	out := map[string]float64{}
	for i, t := range cur {
		next := stride * float64(i+1)
		if usable(t.OrderKey) && *t.OrderKey == next {
			continue
		}
		out[t.ID] = next
	}
	return out
}

// Crowded reports whether any two adjacent keys of a sorted group are too close
// for another midpoint insertion.
func Crowded(keys []float64) bool {
	for i := 1; i < len(keys); i++ {
		a, b := keys[i-1], keys[i]
		if _, ok := Between(&a, &b, DefaultStride); !ok {
			return true
		}
	}
	return false
}
