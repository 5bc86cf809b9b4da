package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	editTitle       string
	editDescription string
	editTags        []string
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a task's title, description, or tags",
	Long: `Edit a task. Only the provided flags change; the record keeps its
id and creation time.

Examples:
  taskmesh edit 3f2a --title "Buy oat milk"
  taskmesh edit 3f2a --description "2 liters"
  taskmesh edit 3f2a --tag errands --tag shopping`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		t, err := resolveTask(app.Tasks.Tasks(), args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("title") {
			t.Title = editTitle
		}
		if cmd.Flags().Changed("description") {
			t.Description = editDescription
		}
		if cmd.Flags().Changed("tag") {
			t.Tags = editTags
		}

		if err := app.Tasks.Update(cmd.Context(), t); err != nil {
			return fmt.Errorf("failed to edit task: %w", err)
		}

		fmt.Printf("Task %s updated\n", shortID(t.ID))
		return nil
	},
}

func init() {
	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editDescription, "description", "", "new description")
	editCmd.Flags().StringArrayVar(&editTags, "tag", nil, "replace tags (repeatable)")
	rootCmd.AddCommand(editCmd)
}
