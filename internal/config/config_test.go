package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.PersistTimeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.PersistTimeout())
	}
	if th := cfg.Thresholds(); th.Reparent != 80 || th.Reorder != 50 {
		t.Fatalf("unexpected thresholds: %+v", th)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Containers) != 3 || cfg.Store.Dir != dir {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFileReplacesContainersAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `containers:
  - key: backlog
    label: Backlog
  - key: shipped
show_unassigned: true
gesture:
  reparent_threshold: 120
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TASKBOARD_ORDER_STRIDE", "64")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Containers) != 2 || cfg.Containers[0].Key != "backlog" || cfg.Containers[1].Key != "shipped" {
		t.Fatalf("expected file containers only, got %+v", cfg.Containers)
	}
	if !cfg.ShowUnassigned {
		t.Fatalf("expected show_unassigned")
	}
	if cfg.Gesture.ReparentThreshold != 120 || cfg.Gesture.ReorderThreshold != 50 {
		t.Fatalf("unexpected gesture config: %+v", cfg.Gesture)
	}
	if cfg.Order.Stride != 64 {
		t.Fatalf("expected env stride 64, got %v", cfg.Order.Stride)
	}
	b := cfg.Board()
	if len(b.Containers) != 2 || !b.ShowUnassigned {
		t.Fatalf("unexpected board config: %+v", b)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	cases := map[string]func(c *Config){
		"containers[1].key":          func(c *Config) { c.Containers[1].Key = "todo" },
		"containers[0].key":          func(c *Config) { c.Containers[0].Key = "" },
		"gesture.reorder_threshold":  func(c *Config) { c.Gesture.ReorderThreshold = 90 },
		"gesture.reparent_threshold": func(c *Config) { c.Gesture.ReparentThreshold = 0 },
		"order.stride":               func(c *Config) { c.Order.Stride = -1 },
		"persist.timeout_ms":         func(c *Config) { c.Persist.TimeoutMs = 0 },
		"log.level":                  func(c *Config) { c.Log.Level = "loud" },
	}
	for field, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		var ve ValidationError
		if err := cfg.Validate(); !errors.As(err, &ve) || ve.Field != field {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := Default()
	cfg.Containers = append(cfg.Containers, ContainerConfig{Key: "review", Label: "Review"})
	if _, err := Write(dir, cfg, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Write(dir, cfg, false); !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrExist without force, got %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Containers) != 4 || got.Containers[3].Label != "Review" {
		t.Fatalf("unexpected containers: %+v", got.Containers)
	}
}
