package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	fileName  = "config.yaml"
	envPrefix = "TASKBOARD"
)

// Dir is $TASKBOARD_CONFIG_DIR, or ~/.taskboard.
func Dir() (string, error) {
	if d := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG_DIR")); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskboard"), nil
}

func Path(dir string) string {
	return filepath.Join(dir, fileName)
}

// Load reads dir/config.yaml over the defaults, then applies TASKBOARD_*
// environment overrides (e.g. TASKBOARD_ORDER_STRIDE), then validates. A
// missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// A configured list replaces the default lanes instead of merging by index.
	if v.IsSet("containers") {
		cfg.Containers = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Store.Dir) == "" {
		cfg.Store.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("show_unassigned", cfg.ShowUnassigned)
	v.SetDefault("gesture.reparent_threshold", cfg.Gesture.ReparentThreshold)
	v.SetDefault("gesture.reorder_threshold", cfg.Gesture.ReorderThreshold)
	v.SetDefault("order.stride", cfg.Order.Stride)
	v.SetDefault("persist.timeout_ms", cfg.Persist.TimeoutMs)
	v.SetDefault("store.dir", cfg.Store.Dir)
	v.SetDefault("web.addr", cfg.Web.Addr)
	v.SetDefault("log.level", cfg.Log.Level)
}

// Write stores cfg as dir/config.yaml. It refuses to overwrite unless force.
func Write(dir string, cfg *Config, force bool) (string, error) {
	path := Path(dir)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, os.ErrExist
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return path, err
	}
	header := []byte("# taskboard configuration\n")
	return path, os.WriteFile(path, append(header, b...), 0o644)
}
