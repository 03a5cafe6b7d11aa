package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"taskboard/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive board (default when no command is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

// runTUI logs to <dir>/tui.log since the program owns the terminal.
func runTUI(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		return writeErr(cmd, err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.Store.Dir, "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer f.Close()

	level := app.LogLevel
	if level == "" {
		level = cfg.Log.Level
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))

	e, _, err := app.newEngine(cmd.Context(), cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := tui.Run(e, tui.Options{Logger: app.log(), Context: cmd.Context()}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
