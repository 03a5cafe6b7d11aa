// Package config resolves the board configuration once, validates it, and
// hands typed values to the assembler, the classifier and the controller.
package config

import (
	"fmt"
	"strings"
	"time"

	"taskboard/internal/board"
	"taskboard/internal/drag"
	"taskboard/internal/gesture"
	"taskboard/internal/model"
	"taskboard/internal/order"
)

type Config struct {
	Containers     []ContainerConfig `json:"containers" yaml:"containers" mapstructure:"containers"`
	ShowUnassigned bool              `json:"show_unassigned" yaml:"show_unassigned" mapstructure:"show_unassigned"`

	Gesture GestureConfig `json:"gesture" yaml:"gesture" mapstructure:"gesture"`
	Order   OrderConfig   `json:"order" yaml:"order" mapstructure:"order"`
	Persist PersistConfig `json:"persist" yaml:"persist" mapstructure:"persist"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Web     WebConfig     `json:"web" yaml:"web" mapstructure:"web"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

type ContainerConfig struct {
	Key   string `json:"key" yaml:"key" mapstructure:"key"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
}

type GestureConfig struct {
	ReparentThreshold float64 `json:"reparent_threshold" yaml:"reparent_threshold" mapstructure:"reparent_threshold"`
	ReorderThreshold  float64 `json:"reorder_threshold" yaml:"reorder_threshold" mapstructure:"reorder_threshold"`
}

type OrderConfig struct {
	Stride float64 `json:"stride" yaml:"stride" mapstructure:"stride"`
}

type PersistConfig struct {
	TimeoutMs int `json:"timeout_ms" yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

type StoreConfig struct {
	// Dir holds the SQLite database. Empty means the config directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" mapstructure:"dir"`
}

type WebConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

func Default() *Config {
	return &Config{
		Containers: []ContainerConfig{
			{Key: "todo", Label: "To do"},
			{Key: "doing", Label: "Doing"},
			{Key: "done", Label: "Done"},
		},
		Gesture: GestureConfig{
			ReparentThreshold: gesture.DefaultReparentThreshold,
			ReorderThreshold:  gesture.DefaultReorderThreshold,
		},
		Order:   OrderConfig{Stride: order.DefaultStride},
		Persist: PersistConfig{TimeoutMs: int(drag.DefaultPersistTimeout / time.Millisecond)},
		Web:     WebConfig{Addr: "127.0.0.1:8787"},
		Log:     LogConfig{Level: "warn"},
	}
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Msg)
}

// Validate checks the whole configuration and returns the first problem.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, ct := range c.Containers {
		key := strings.TrimSpace(ct.Key)
		field := fmt.Sprintf("containers[%d].key", i)
		if key == model.UnassignedContainer {
			return ValidationError{Field: field, Msg: "empty key (use show_unassigned for the unassigned lane)"}
		}
		if key != ct.Key {
			return ValidationError{Field: field, Msg: "surrounding whitespace"}
		}
		if seen[key] {
			return ValidationError{Field: field, Msg: fmt.Sprintf("duplicate key %q", key)}
		}
		seen[key] = true
	}
	g := c.Gesture
	if !(g.ReparentThreshold > 0) {
		return ValidationError{Field: "gesture.reparent_threshold", Msg: "must be > 0"}
	}
	if !(g.ReorderThreshold > 0) {
		return ValidationError{Field: "gesture.reorder_threshold", Msg: "must be > 0"}
	}
	if g.ReorderThreshold >= g.ReparentThreshold {
		return ValidationError{Field: "gesture.reorder_threshold", Msg: "must be below reparent_threshold"}
	}
	if !(c.Order.Stride > 0) {
		return ValidationError{Field: "order.stride", Msg: "must be > 0"}
	}
	if c.Persist.TimeoutMs <= 0 {
		return ValidationError{Field: "persist.timeout_ms", Msg: "must be > 0"}
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "log.level", Msg: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	return nil
}

func (c *Config) Board() board.Config {
	defs := make([]board.ContainerDef, 0, len(c.Containers))
	for _, ct := range c.Containers {
		defs = append(defs, board.ContainerDef{Key: ct.Key, Label: ct.Label})
	}
	return board.Config{Containers: defs, ShowUnassigned: c.ShowUnassigned}
}

func (c *Config) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{Reparent: c.Gesture.ReparentThreshold, Reorder: c.Gesture.ReorderThreshold}
}

func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.Persist.TimeoutMs) * time.Millisecond
}

// ControllerOptions maps the config onto drag controller options.
func (c *Config) ControllerOptions() drag.Options {
	return drag.Options{
		Thresholds:     c.Thresholds(),
		Stride:         c.Order.Stride,
		PersistTimeout: c.PersistTimeout(),
	}
}
