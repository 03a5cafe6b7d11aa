package cli

import (
	"taskboard/internal/board"
	"taskboard/internal/tui"

	"github.com/spf13/cobra"
)

type boardPayload struct {
	Data []board.Container `json:"data"`
	Meta boardMeta         `json:"meta"`

	width int
}

type boardMeta struct {
	Version uint64 `json:"version"`
	Tasks   int    `json:"tasks"`
}

func (p boardPayload) Text() string {
	return tui.RenderBoard(p.Data, tui.RenderOptions{Width: p.width})
}

func newBoardCmd(app *App) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the assembled board (containers, roots, nested rows)",
		Example: `  taskboard board --format text --width 120
  taskboard board --pretty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := app.newEngine(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, boardPayload{
				Data:  e.VisibleContainers(),
				Meta:  boardMeta{Version: e.View().Version(), Tasks: e.View().Len()},
				width: width,
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "Board width in columns for --format text")
	return cmd
}
