package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move [id] [status]",
	Short: "Move a task through its lifecycle",
	Long: `Move a task to another lifecycle status.

The store accepts any status overwrite; this command enforces the legal
transitions: inbox -> next/waiting/someday/done/trash, next ->
waiting/done/trash, waiting/someday -> done/trash, done -> inbox/trash
(reopen), trash -> inbox (restore).

Examples:
  taskmesh move 3f2a next
  taskmesh move 3f2a done
  taskmesh move 3f2a inbox   # restore from trash`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		next, err := task.ParseStatus(args[1])
		if err != nil {
			return fmt.Errorf("unknown status %q (valid: %s)", args[1], statusNames())
		}

		t, err := resolveTask(app.Tasks.Tasks(), args[0])
		if err != nil {
			return err
		}

		if !t.Status.CanTransitionTo(next) {
			legal := t.Status.LegalTransitions()
			names := make([]string, 0, len(legal))
			for _, s := range legal {
				names = append(names, string(s))
			}
			return fmt.Errorf("cannot move %s task to %s (legal: %s)",
				t.Status, next, strings.Join(names, ", "))
		}

		t.Status = next
		if err := app.Tasks.Update(cmd.Context(), t); err != nil {
			return fmt.Errorf("failed to move task: %w", err)
		}

		fmt.Printf("Task %s moved to %s\n", shortID(t.ID), next)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
}
