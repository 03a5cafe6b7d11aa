// Package store persists the task forest in a local SQLite database and
// implements the drag engine's TaskStore contract.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const sqliteFileName = "taskboard.sqlite"

// Store is a handle on a data directory. Each call opens its own connection,
// so a zero-cost value can be shared between goroutines.
type Store struct {
	Dir    string
	Logger *slog.Logger
}

func New(dir string, logger *slog.Logger) Store {
	return Store{Dir: strings.TrimSpace(dir), Logger: logger}
}

// DefaultDir is ~/.taskboard.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskboard"), nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: empty data dir")
	}
	return os.MkdirAll(s.Dir, 0o755)
}

// Path is the SQLite database file.
func (s Store) Path() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s Store) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// CycleError rejects a parent change that would close a loop.
type CycleError struct {
	TaskID   string
	ParentID string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("cannot move %s under %s: would create a cycle", e.TaskID, e.ParentID)
}
