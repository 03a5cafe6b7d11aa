package cli

import (
	"sort"

	"taskboard/internal/model"
	"taskboard/internal/order"

	"github.com/spf13/cobra"
)

type siblingGroup struct {
	Parent    string `json:"parent,omitempty"`
	Container string `json:"container"`
	Size      int    `json:"size"`
	Crowded   bool   `json:"crowded"`
	Changes   int    `json:"changes"`
}

// planRenormalize respaces every sibling group. Root groups are keyed by
// container, child groups by parent.
func planRenormalize(tasks []model.Task, stride float64) ([]siblingGroup, map[string]float64) {
	present := map[string]bool{}
	for _, t := range tasks {
		present[t.ID] = true
	}
	type gkey struct{ parent, container string }
	groups := map[gkey][]model.Task{}
	for _, t := range tasks {
		k := gkey{container: t.ContainerKey}
		if !t.IsRoot() && present[t.Parent()] {
			k = gkey{parent: t.Parent()}
		}
		groups[k] = append(groups[k], t)
	}
	keys := make([]gkey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].parent != keys[j].parent {
			return keys[i].parent < keys[j].parent
		}
		return keys[i].container < keys[j].container
	})

	plan := map[string]float64{}
	out := make([]siblingGroup, 0, len(keys))
	for _, k := range keys {
		g := append([]model.Task{}, groups[k]...)
		order.Sort(g)
		eff := order.Effective(order.Keys(g), stride)
		changes := order.Respace(g, stride)
		for id, v := range changes {
			plan[id] = v
		}
		container := k.container
		if k.parent != "" {
			container = g[0].ContainerKey
		}
		out = append(out, siblingGroup{
			Parent:    k.parent,
			Container: container,
			Size:      len(g),
			Crowded:   order.Crowded(eff),
			Changes:   len(changes),
		})
	}
	return out, plan
}

func newRenormalizeCmd(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "renormalize",
		Short: "Respace order keys of every sibling group to stride multiples",
		Long: `Repeated drops into the same gap eventually run out of float64 precision.
Renormalizing keeps each group's current order and rewrites its keys as
stride, 2*stride, ... in one transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.ListTasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			groups, plan := planRenormalize(tasks, cfg.Order.Stride)
			if !dryRun && len(plan) > 0 {
				if err := st.SaveOrderKeys(cmd.Context(), plan); err != nil {
					return writeErr(cmd, err)
				}
				app.log().Info("order keys renormalized", "tasks", len(plan), "groups", len(groups))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"groups":  groups,
					"changed": len(plan),
					"keys":    plan,
				},
				"meta": map[string]any{"dryRun": dryRun, "stride": cfg.Order.Stride},
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report the plan")
	return cmd
}
