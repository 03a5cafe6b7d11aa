// Package tree walks the parent-reference graph of a task view.
//
// Every walk is bounded: a dangling parent ends the chain as if it reached a
// root, and a chain that revisits a task (already corrupt data) stops there.
package tree

import (
	"strings"

	"taskboard/internal/model"
)

// Finder resolves a task by id.
type Finder interface {
	FindTask(id string) (*model.Task, bool)
}

// ChildLister lists the direct children of a task.
type ChildLister interface {
	Finder
	ChildrenOf(id string) []model.Task
}

// Ancestors returns the parent chain of id, nearest first. The task itself is
// not included.
func Ancestors(f Finder, id string) []string {
	id = strings.TrimSpace(id)
	if f == nil || id == "" {
		return nil
	}
	out := []string{}
	seen := map[string]bool{id: true}
	cur := id
	for {
		t, ok := f.FindTask(cur)
		if !ok || t == nil || t.IsRoot() {
			return out
		}
		pid := t.Parent()
		if seen[pid] {
			return out
		}
		if _, ok := f.FindTask(pid); !ok {
			return out
		}
		seen[pid] = true
		out = append(out, pid)
		cur = pid
	}
}

// IsDescendantOf reports whether ancestorID appears in taskID's parent chain.
func IsDescendantOf(f Finder, taskID, ancestorID string) bool {
	ancestorID = strings.TrimSpace(ancestorID)
	if ancestorID == "" {
		return false
	}
	for _, a := range Ancestors(f, taskID) {
		if a == ancestorID {
			return true
		}
	}
	return false
}

// WouldCreateCycle reports whether making candidateParentID the parent of
// taskID would close a loop: either they are the same task, or taskID already
// sits in candidateParentID's ancestor chain.
func WouldCreateCycle(f Finder, taskID, candidateParentID string) bool {
	taskID = strings.TrimSpace(taskID)
	candidateParentID = strings.TrimSpace(candidateParentID)
	if taskID == "" || candidateParentID == "" {
		return false
	}
	if taskID == candidateParentID {
		return true
	}
	return IsDescendantOf(f, candidateParentID, taskID)
}

// Depth is the number of ancestors of id (0 for roots).
func Depth(f Finder, id string) int {
	return len(Ancestors(f, id))
}

// Subtree returns rootID followed by all of its descendants, depth-first.
func Subtree(c ChildLister, rootID string) []string {
	rootID = strings.TrimSpace(rootID)
	if c == nil || rootID == "" {
		return nil
	}
	out := []string{}
	seen := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, ch := range c.ChildrenOf(id) {
			walk(ch.ID)
		}
	}
	walk(rootID)
	return out
}
