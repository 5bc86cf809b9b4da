package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/task"
	"github.com/taskmesh/taskmesh/internal/tasklist"
)

var (
	listView string
	listAll  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks, newest first.

Views mirror the lifecycle: inbox, next, waiting, someday, done, trash.
Active views hide done and trash; the done and trash views show only
themselves.

Examples:
  taskmesh list                 # inbox
  taskmesh list --view next
  taskmesh list --view trash
  taskmesh list --all`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		tasks := app.Tasks.Tasks()
		view := task.StatusInbox

		if !listAll {
			if listView != "" {
				view, err = task.ParseStatus(listView)
				if err != nil {
					return fmt.Errorf("unknown view %q (valid: %s)", listView, statusNames())
				}
			}
			tasks = tasklist.FilterByView(tasks, view)
		}

		if len(tasks) == 0 {
			if listAll {
				fmt.Println("No tasks found.")
			} else {
				fmt.Printf("No tasks in %s.\n", view)
			}
			return nil
		}

		fmt.Printf("Tasks (%d):\n", len(tasks))
		fmt.Println(strings.Repeat("-", 60))
		for _, t := range tasks {
			printTask(t)
		}
		return nil
	},
}

func statusNames() string {
	names := make([]string, 0, len(task.Statuses()))
	for _, s := range task.Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func init() {
	listCmd.Flags().StringVarP(&listView, "view", "s", "", "status view (inbox, next, waiting, someday, done, trash)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "show every task regardless of status")
	rootCmd.AddCommand(listCmd)
}
