package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"persona/internal/task"
)

// NewTasksCmd creates the tasks command and its subcommands.
func NewTasksCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks without starting the TUI",
	}

	cmd.AddCommand(
		newTasksListCmd(configPath),
		newTasksAddCmd(configPath),
		newTaskIDCmd(configPath, "done <id>", "Toggle a task between active and completed", "Toggled",
			func(app *App, cmd *cobra.Command, id string) error {
				return app.Tasks.ToggleDone(cmd.Context(), id)
			}),
		newTaskIDCmd(configPath, "rm <id>", "Remove a task", "Removed",
			func(app *App, cmd *cobra.Command, id string) error {
				if _, ok := app.Tasks.Get(id); !ok {
					return task.ErrNotFound
				}
				return app.Tasks.RemoveTask(cmd.Context(), id)
			}),
		newTasksRenameCmd(configPath),
		newTasksDueCmd(configPath),
		newTasksBulkCmd(configPath, "mark-all", "Mark every task completed", "Marked all tasks completed",
			func(app *App, cmd *cobra.Command) error { return app.Tasks.MarkAll(cmd.Context()) }),
		newTasksBulkCmd(configPath, "clear-completed", "Remove completed tasks", "Removed completed tasks",
			func(app *App, cmd *cobra.Command) error { return app.Tasks.RemoveCompleted(cmd.Context()) }),
		newTasksClearCmd(configPath),
		newTasksBackendCmd(configPath),
	)
	return cmd
}

func newTasksListCmd(configPath *string) *cobra.Command {
	var filter, sortBy, order, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				q, err := listQuery(app, cmd, filter, sortBy, order)
				if err != nil {
					return err
				}
				q.Search = search
				printListing(cmd.OutOrStdout(), app.Tasks.Render(q))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "all, active or completed (default from config)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "createdAt, title, due or status (default from config)")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc (default from config)")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive title substring")
	return cmd
}

func listQuery(app *App, cmd *cobra.Command, filter, sortBy, order string) (task.Query, error) {
	cfg := app.Config
	pick := func(flag, value, fallback string) string {
		if cmd.Flags().Changed(flag) {
			return value
		}
		return fallback
	}

	var q task.Query
	var err error
	if q.Filter, err = task.ParseFilter(pick("filter", filter, cfg.DefaultFilter)); err != nil {
		return q, err
	}
	if q.SortBy, err = task.ParseSortKey(pick("sort", sortBy, cfg.SortBy)); err != nil {
		return q, err
	}
	if q.Order, err = task.ParseOrder(pick("order", order, cfg.SortOrder)); err != nil {
		return q, err
	}
	return q, nil
}

func printListing(w io.Writer, l task.Listing) {
	if len(l.Tasks) == 0 {
		if l.Stats.Total == 0 {
			fmt.Fprintln(w, "No tasks")
		} else {
			fmt.Fprintln(w, "No tasks match")
		}
	}
	for _, t := range l.Tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%-14s %s %s", t.ID, mark, t.Title)
		if t.Due != nil {
			line += "  (due " + *t.Due + ")"
		}
		fmt.Fprintln(w, line)
	}
	st := l.Stats
	fmt.Fprintf(w, "%d total, %d completed, %d active (%d%%)\n", st.Total, st.Completed, st.Active, st.Percent())
}

func newTasksAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				t, err := app.Tasks.Add(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
}

func newTaskIDCmd(configPath *string, use, short, done string, fn func(*App, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				if err := fn(app, cmd, args[0]); err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
				return nil
			})
		},
	}
}

func newTasksRenameCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Change a task's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				if err := app.Tasks.Rename(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s\n", args[0])
				return nil
			})
		},
	}
}

func newTasksDueCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "due <id> [YYYY-MM-DD]",
		Short: "Set or clear a task's due date",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			due := ""
			if len(args) == 2 {
				due = args[1]
			}
			return withApp(cmd, *configPath, func(app *App) error {
				if err := app.Tasks.SetDue(cmd.Context(), args[0], due); err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				if strings.TrimSpace(due) == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared due date of %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %s due %s\n", args[0], due)
				}
				return nil
			})
		},
	}
}

func newTasksBulkCmd(configPath *string, use, short, done string, fn func(*App, *cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				if err := fn(app, cmd); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), done)
				return nil
			})
		},
	}
}

func newTasksClearCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to remove all tasks without --yes")
			}
			return withApp(cmd, *configPath, func(app *App) error {
				if err := app.Tasks.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed all tasks")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removing all tasks")
	return cmd
}

func newTasksBackendCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "backend [array|map]",
		Short:     "Show or switch the storage backend",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(task.KindArray), string(task.KindMap)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					fmt.Fprintln(out, app.Tasks.Active())
					return nil
				}
				kind, err := task.ParseKind(args[0])
				if err != nil {
					return err
				}
				moved, err := app.Tasks.Switch(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if moved {
					fmt.Fprintf(out, "Switched to %s (%d tasks)\n", kind, app.Tasks.Backend().Len())
				} else {
					fmt.Fprintf(out, "Already using %s\n", kind)
				}
				return nil
			})
		},
	}
}
