package drag

import (
	"sync"

	"taskboard/internal/model"
	"taskboard/internal/order"
)

// View is the engine's owned, versioned copy of the task set. It is replaced
// wholesale by Reload and mutated in place only by optimistic patches.
type View struct {
	mu      sync.RWMutex
	version uint64
	tasks   []model.Task
	idx     map[string]int
}

func NewView(tasks []model.Task) *View {
	v := &View{}
	v.Reload(tasks)
	return v
}

// Reload replaces the task set and returns the new version.
func (v *View) Reload(tasks []model.Task) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = append([]model.Task{}, tasks...)
	v.idx = make(map[string]int, len(v.tasks))
	for i, t := range v.tasks {
		v.idx[t.ID] = i
	}
	v.version++
	return v.version
}

func (v *View) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tasks)
}

// Tasks returns a snapshot of the current task set.
func (v *View) Tasks() []model.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.Task{}, v.tasks...)
}

// FindTask returns a copy of the task with id.
func (v *View) FindTask(id string) (*model.Task, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.idx[id]
	if !ok {
		return nil, false
	}
	t := v.tasks[i]
	return &t, true
}

// ChildrenOf returns the direct children of id in sibling order.
func (v *View) ChildrenOf(id string) []model.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.childrenLocked(id, "")
}

func (v *View) childrenLocked(id, excludeID string) []model.Task {
	var out []model.Task
	if id == "" {
		return out
	}
	for _, t := range v.tasks {
		if t.ID == excludeID || t.IsRoot() || t.Parent() != id {
			continue
		}
		out = append(out, t)
	}
	order.Sort(out)
	return out
}

// GroupParent returns the parent that places t in its sibling group. A task
// whose parent is not in the view is grouped with the roots, as the board
// shows it.
func (v *View) GroupParent(t model.Task) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.groupParentLocked(t)
}

func (v *View) groupParentLocked(t model.Task) string {
	pid := t.Parent()
	if _, ok := v.idx[pid]; !ok {
		return ""
	}
	return pid
}

// Siblings returns the sibling group (parentID, containerKey) in order,
// without excludeID. An empty parentID selects the container's roots,
// orphans included.
func (v *View) Siblings(parentID, containerKey, excludeID string) []model.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []model.Task
	for _, t := range v.tasks {
		if t.ID == excludeID || v.groupParentLocked(t) != parentID || t.ContainerKey != containerKey {
			continue
		}
		out = append(out, t)
	}
	order.Sort(out)
	return out
}

// Apply writes p into the task with id. A container change cascades to the
// whole subtree so children keep their parent's container key.
func (v *View) Apply(id string, p model.Patch) (changed bool, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i, ok := v.idx[id]
	if !ok {
		return false, false
	}
	changed = p.Apply(&v.tasks[i])
	if p.ContainerKey != nil {
		key := *p.ContainerKey
		seen := map[string]bool{id: true}
		queue := []string{id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := range v.tasks {
				t := &v.tasks[j]
				if t.IsRoot() || t.Parent() != cur || seen[t.ID] {
					continue
				}
				seen[t.ID] = true
				if t.ContainerKey != key {
					t.ContainerKey = key
					changed = true
				}
				queue = append(queue, t.ID)
			}
		}
	}
	if changed {
		v.version++
	}
	return changed, true
}

// SetOrderKeys writes keys into the named tasks. Unknown ids are skipped.
func (v *View) SetOrderKeys(keys map[string]float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	changed := false
	for id, k := range keys {
		i, ok := v.idx[id]
		if !ok {
			continue
		}
		k := k
		if (model.Patch{OrderKey: &k}).Apply(&v.tasks[i]) {
			changed = true
		}
	}
	if changed {
		v.version++
	}
	return changed
}
