package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"taskboard/internal/model"
	"taskboard/internal/order"
	"taskboard/internal/store"
	"taskboard/internal/tree"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and edit tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksCompleteCmd(app, true))
	cmd.AddCommand(newTasksCompleteCmd(app, false))
	cmd.AddCommand(newTasksRenameCmd(app))
	cmd.AddCommand(newTasksImportCmd(app))
	return cmd
}

// taskList renders one line per task in text mode.
type taskList struct {
	Data []model.Task `json:"data"`
	Meta taskListMeta `json:"meta"`
}

type taskListMeta struct {
	Count     int    `json:"count"`
	Container string `json:"container,omitempty"`
}

func (l taskList) Text() string {
	if len(l.Data) == 0 {
		return "(no tasks)"
	}
	var b strings.Builder
	for _, t := range l.Data {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		parent := "-"
		if !t.IsRoot() {
			parent = t.Parent()
		}
		lane := t.ContainerKey
		if lane == model.UnassignedContainer {
			lane = model.UnassignedLabel
		}
		fmt.Fprintf(&b, "%s %s  %s  (lane %s, parent %s)\n", mark, t.ID, t.Title, lane, parent)
	}
	return b.String()
}

func newTasksListCmd(app *App) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in stored order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.ListTasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			containerSet := cmd.Flags().Changed("container")
			out := make([]model.Task, 0, len(tasks))
			for _, t := range tasks {
				if containerSet && t.ContainerKey != strings.TrimSpace(container) {
					continue
				}
				out = append(out, t)
			}
			return writeOut(cmd, app, taskList{
				Data: out,
				Meta: taskListMeta{Count: len(out), Container: strings.TrimSpace(container)},
			})
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Only tasks in this container (empty string: unassigned)")
	return cmd
}

// taskFinder adapts a task slice to tree.Finder and tree.ChildLister.
type taskFinder map[string]model.Task

func newTaskFinder(tasks []model.Task) taskFinder {
	f := taskFinder{}
	for _, t := range tasks {
		f[t.ID] = t
	}
	return f
}

func (f taskFinder) FindTask(id string) (*model.Task, bool) {
	t, ok := f[id]
	if !ok {
		return nil, false
	}
	return &t, true
}

func (f taskFinder) ChildrenOf(id string) []model.Task {
	var out []model.Task
	for _, t := range f {
		if t.Parent() == id && t.ID != id {
			out = append(out, t)
		}
	}
	order.Sort(out)
	return out
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task with its ancestry and subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			t, err := st.GetTask(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.ListTasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			f := newTaskFinder(tasks)
			sub := tree.Subtree(f, t.ID)
			return writeOut(cmd, app, map[string]any{
				"data": t,
				"meta": map[string]any{
					"ancestors":   tree.Ancestors(f, t.ID),
					"depth":       tree.Depth(f, t.ID),
					"children":    f.ChildrenOf(t.ID),
					"descendants": sub[1:],
				},
			})
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var parent, container, due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Append a task to its sibling group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			in := store.NewTask{
				Title:        strings.Join(args, " "),
				ParentID:     parent,
				ContainerKey: container,
			}
			if strings.TrimSpace(due) != "" {
				d, err := parseDue(due)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Due = d
			}
			t, err := st.CreateTask(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   t,
				"_hints": []string{"taskboard tasks show " + t.ID},
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task id (the task joins the parent's container)")
	cmd.Flags().StringVar(&container, "container", "", "Container key for a root task")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)")
	return cmd
}

func newTasksCompleteCmd(app *App, done bool) *cobra.Command {
	use, short := "complete <task-id>", "Mark a task completed"
	if !done {
		use, short = "reopen <task-id>", "Mark a task not completed"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if err := st.SetCompleted(cmd.Context(), id, done); err != nil {
				return writeErr(cmd, err)
			}
			t, err := st.GetTask(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
}

func newTasksRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <task-id> <title>",
		Short: "Change a task title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if err := st.SetTitle(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return writeErr(cmd, err)
			}
			t, err := st.GetTask(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
}

// readTaskFile accepts a JSON array of tasks or an object with a "tasks"
// (or "data") array, so `tasks list` output can be imported back.
func readTaskFile(path string) ([]model.Task, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var tasks []model.Task
		if err := json.Unmarshal(b, &tasks); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return tasks, nil
	}
	var doc struct {
		Tasks []model.Task `json:"tasks"`
		Data  []model.Task `json:"data"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Tasks != nil {
		return doc.Tasks, nil
	}
	return doc.Data, nil
}

func newTasksImportCmd(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all tasks with the contents of a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(file) == "" {
				return writeErr(cmd, errors.New("import: missing --file"))
			}
			tasks, err := readTaskFile(file)
			if err != nil {
				return writeErr(cmd, err)
			}
			f := newTaskFinder(tasks)
			for _, t := range tasks {
				if !t.IsRoot() && tree.WouldCreateCycle(f, t.ID, t.Parent()) {
					return writeErr(cmd, store.CycleError{TaskID: t.ID, ParentID: t.Parent()})
				}
			}
			_, st, err := app.openStore(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.ImportTasks(cmd.Context(), tasks); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"imported": len(tasks)}})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with tasks")
	return cmd
}
