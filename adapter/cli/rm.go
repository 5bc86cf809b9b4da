package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a task permanently",
	Long: `Delete a task permanently. Unlike moving a task to trash, deletion
removes the record from the store and cannot be undone.`,
	Aliases: []string{"delete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		t, err := resolveTask(app.Tasks.Tasks(), args[0])
		if err != nil {
			return err
		}

		app.Tasks.Remove(cmd.Context(), t.ID)
		fmt.Printf("Task %s deleted\n", shortID(t.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
