package cli

import (
	"errors"
	"os"

	"taskboard/internal/config"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the data dir (config.yaml + task database)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.dir()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := config.Write(dir, config.Default(), false)
			createdConfig := err == nil
			if err != nil && !errors.Is(err, os.ErrExist) {
				return writeErr(cmd, err)
			}

			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Listing opens the database, which runs the migrations.
			tasks, err := st.ListTasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":           dir,
					"configPath":    path,
					"createdConfig": createdConfig,
					"sqlitePath":    st.Path(),
					"tasks":         len(tasks),
				},
			})
		},
	}
	return cmd
}
