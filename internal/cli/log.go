package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newLogCmd(app *App) *cobra.Command {
	var taskID string
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show applied drag patches, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			recs, err := st.ReadPatchLog(cmd.Context(), strings.TrimSpace(taskID), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": recs,
				"meta": map[string]any{"count": len(recs), "limit": limit},
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "Only patches for this task")
	cmd.Flags().IntVar(&limit, "limit", 50, "Most recent N patches (0: all)")
	return cmd
}
