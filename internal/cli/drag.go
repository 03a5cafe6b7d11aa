package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"taskboard/internal/drag"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
	"taskboard/internal/tui"

	"github.com/spf13/cobra"
)

func newDragCmd(app *App) *cobra.Command {
	var target string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "drag <task-id> --target <kind:ref>",
		Short: "Drop a task onto a target (one-shot drag session)",
		Long: strings.TrimSpace(`
Run a complete drag session for one task and drop it on an explicit target.

Target kinds:
  before-sibling:<task-id>     place right before the task, in its group
  after-sibling:<task-id>      place right after the task, in its group
  into-task:<task-id>          make it the first child of the task
  into-container:<key>         append it to the container's roots
  into-empty-container:<key>   same, for a container with no roots

An empty key (e.g. "into-container:") is the unassigned lane.
`),
		Example: strings.TrimSpace(`
taskboard drag t-1a2b3c4d --target before-sibling:t-9f8e7d6c
taskboard drag t-1a2b3c4d --target into-container:done --dry-run
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(target) == "" {
				return writeErr(cmd, errors.New("drag: missing --target"))
			}
			tgt, err := dropzone.ParseTarget(target)
			if err != nil {
				return writeErr(cmd, err)
			}
			e, _, err := app.newEngine(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			taskID := strings.TrimSpace(args[0])

			if dryRun {
				if _, ok := e.View().FindTask(taskID); !ok {
					return writeErr(cmd, fmt.Errorf("%w: %s", drag.ErrTaskNotFound, taskID))
				}
				pl, perr := e.Controller().Plan(taskID, tgt)
				data := map[string]any{
					"taskId":   taskID,
					"target":   tgt,
					"noop":     pl.Noop,
					"degraded": pl.Degraded,
				}
				if perr == nil && !pl.Noop {
					data["patch"] = pl.Patch
					if len(pl.Filled) > 0 {
						data["filled"] = pl.Filled
					}
				}
				if perr != nil {
					data["error"] = perr.Error()
					if r := rejectReason(perr); r != "" {
						data["reason"] = r
					}
				}
				_ = writeOut(cmd, app, map[string]any{"data": data, "meta": map[string]any{"dryRun": true}})
				if perr != nil {
					return writeErr(cmd, perr)
				}
				return nil
			}

			if err := e.OnDragStart(taskID); err != nil {
				return writeErr(cmd, fmt.Errorf("%w: %s", err, taskID))
			}
			out, err := e.OnDragEnd(cmd.Context(), &tgt)
			if err != nil {
				return writeErr(cmd, err)
			}
			return finishOutcome(cmd, app, out, nil)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Drop target as kind:ref")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned patch without applying it")

	cmd.AddCommand(newDragReplayCmd(app))
	cmd.AddCommand(newDragClassifyCmd(app))
	return cmd
}

func rejectReason(err error) drag.RejectReason {
	var rej drag.RejectError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// finishOutcome waits for persistence of a committed drop and prints the
// outcome. Rejections and persistence failures exit non-zero.
func finishOutcome(cmd *cobra.Command, app *App, out drag.Outcome, meta map[string]any) error {
	data := map[string]any{
		"kind":   out.Kind,
		"taskId": out.TaskID,
	}
	if out.Target != nil {
		data["target"] = *out.Target
	}
	var failed error
	switch out.Kind {
	case drag.OutcomeCommitted:
		data["patch"] = out.Patch
		if len(out.Filled) > 0 {
			data["filled"] = out.Filled
		}
		data["degraded"] = out.Degraded
		if out.Result != nil {
			if perr := <-out.Result; perr != nil {
				data["persistError"] = perr.Error()
				failed = fmt.Errorf("persist %s: %w", out.TaskID, perr)
			}
		}
	case drag.OutcomeRejected:
		data["reason"] = rejectReason(out.Err)
		if out.Err != nil {
			data["error"] = out.Err.Error()
		}
		failed = out.Err
	}
	payload := map[string]any{"data": data}
	if meta != nil {
		payload["meta"] = meta
	}
	if out.Degraded {
		payload["_hints"] = []string{"taskboard renormalize"}
	}
	if err := writeOut(cmd, app, payload); err != nil {
		return writeErr(cmd, err)
	}
	if failed != nil {
		return writeErr(cmd, failed)
	}
	return nil
}

// dragScript is a recorded pointer stream for `drag replay`.
type dragScript struct {
	Task  string          `json:"task"`
	Zones []dropzone.Zone `json:"zones,omitempty"`
	Moves []gesture.Point `json:"moves"`
	// Drop defaults to true; false ends the drag outside any target.
	Drop *bool `json:"drop,omitempty"`
}

type replayStep struct {
	Pointer gesture.Point    `json:"pointer"`
	Intent  gesture.Intent   `json:"intent"`
	Target  *dropzone.Target `json:"target,omitempty"`
}

func readDragScript(path string) (dragScript, error) {
	var sc dragScript
	b, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(sc.Task) == "" {
		return sc, fmt.Errorf("%s: missing task", path)
	}
	return sc, nil
}

func newDragReplayCmd(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "replay --file <script.json>",
		Short: "Replay a recorded pointer stream through the gesture classifier and drop",
		Long: strings.TrimSpace(`
Replay a drag script: {"task": "<id>", "zones": [...], "moves": [{"x":0,"y":0}, ...], "drop": true}.

Without zones the board's own layout is used (a 300x20 unit grid per
container column: header zone, then before/into/after strips per row).
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(file) == "" {
				return writeErr(cmd, errors.New("replay: missing --file"))
			}
			sc, err := readDragScript(file)
			if err != nil {
				return writeErr(cmd, err)
			}
			e, _, err := app.newEngine(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			zones := sc.Zones
			if len(zones) == 0 {
				zones = tui.Zones(e.VisibleContainers())
			}
			if err := e.OnDragStart(strings.TrimSpace(sc.Task)); err != nil {
				return writeErr(cmd, fmt.Errorf("%w: %s", err, sc.Task))
			}
			steps := make([]replayStep, 0, len(sc.Moves))
			for i, p := range sc.Moves {
				var zs []dropzone.Zone
				if i == 0 {
					zs = zones
				}
				st, err := e.OnDragMove(p, zs)
				if err != nil {
					e.OnDragCancel()
					return writeErr(cmd, err)
				}
				steps = append(steps, replayStep{Pointer: p, Intent: st.Intent, Target: st.Target})
			}

			var out drag.Outcome
			if sc.Drop == nil || *sc.Drop {
				out, err = e.OnDrop(cmd.Context())
			} else {
				out, err = e.OnDragEnd(cmd.Context(), nil)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return finishOutcome(cmd, app, out, map[string]any{"steps": steps, "zones": len(zones)})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Drag script (JSON)")
	return cmd
}

func parsePoint(s string) (gesture.Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return gesture.Point{}, fmt.Errorf("invalid point %q (want x,y)", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return gesture.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return gesture.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return gesture.Point{X: x, Y: y}, nil
}

func newDragClassifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "classify <x,y>...",
		Short:   "Print the inferred intent after each pointer position",
		Example: "  taskboard drag classify 0,0 40,5 90,10 90,80",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			points := make([]gesture.Point, 0, len(args))
			for _, a := range args {
				p, err := parsePoint(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				points = append(points, p)
			}
			th := cfg.Thresholds()
			return writeOut(cmd, app, map[string]any{
				"data": gesture.Replay(th, points),
				"meta": map[string]any{"thresholds": th},
			})
		},
	}
}
