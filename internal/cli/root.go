package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"taskboard/internal/config"
	"taskboard/internal/drag"
	"taskboard/internal/format"
	"taskboard/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	PrettyJSON bool
	Format     string
	LogLevel   string

	logger *slog.Logger
	cfg    *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskboard",
		Short:        "Hierarchical task board with drag-and-drop reordering",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  taskboard

  # Scriptable commands
  taskboard tasks list
  taskboard drag t-1a2b3c4d --target before-sibling:t-9f8e7d6c

  # Direct task lookup (shortcut for: taskboard tasks show <task-id>)
  taskboard t-1a2b3c4d
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lg, err := newLogger(cmd.ErrOrStderr(), app.LogLevel)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.logger = lg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("TASKBOARD_DIR", ""), "Data dir holding config.yaml and the task database (default: $TASKBOARD_CONFIG_DIR or ~/.taskboard)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKBOARD_FORMAT", "json"), "Output format (json|edn|yaml|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("TASKBOARD_LOG_LEVEL", ""), "Log level (debug|info|warn|error; default from config)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newDragCmd(app))
	cmd.AddCommand(newRenormalizeCmd(app))
	cmd.AddCommand(newLogCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newWebCmd(app))

	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q (want debug|info|warn|error)", s)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func (app *App) log() *slog.Logger {
	if app.logger != nil {
		return app.logger
	}
	return slog.Default()
}

func (app *App) dir() (string, error) {
	if d := strings.TrimSpace(app.Dir); d != "" {
		return d, nil
	}
	d, err := config.Dir()
	if err != nil {
		return "", err
	}
	app.Dir = d
	return d, nil
}

// loadConfig resolves the config once per invocation. Without an explicit
// --log-level the configured level replaces the warn default.
func (app *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if app.cfg != nil {
		return app.cfg, nil
	}
	dir, err := app.dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.LogLevel) == "" && strings.TrimSpace(cfg.Log.Level) != "" {
		if lg, lerr := newLogger(cmd.ErrOrStderr(), cfg.Log.Level); lerr == nil {
			app.logger = lg
		}
	}
	app.cfg = cfg
	return cfg, nil
}

func (app *App) openStore(cmd *cobra.Command) (*config.Config, store.Store, error) {
	cfg, err := app.loadConfig(cmd)
	if err != nil {
		return nil, store.Store{}, err
	}
	return cfg, store.New(cfg.Store.Dir, app.log()), nil
}

// newEngine builds an engine over the store and loads the current tasks.
func (app *App) newEngine(ctx context.Context, cmd *cobra.Command) (*drag.Engine, store.Store, error) {
	cfg, st, err := app.openStore(cmd)
	if err != nil {
		return nil, st, err
	}
	e := drag.NewEngine(st, drag.EngineOptions{
		Board:      cfg.Board(),
		Controller: cfg.ControllerOptions(),
		Logger:     app.log(),
	})
	if err := e.Reload(ctx); err != nil {
		return nil, st, err
	}
	return e, st, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
