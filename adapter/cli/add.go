package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addDescription string
	addTags        []string
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Capture a new task into the inbox",
	Long: `Capture a new task. New tasks always start in the inbox.

Examples:
  taskmesh add "Buy milk"
  taskmesh add "Review PR" --description "focus on the storage layer"
  taskmesh add "Plan trip" --tag travel --tag family`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		t, err := app.Tasks.Add(cmd.Context(), args[0], addDescription, addTags)
		if err != nil {
			return fmt.Errorf("failed to add task: %w", err)
		}

		fmt.Printf("Task captured: %s\n", shortID(t.ID))
		fmt.Printf("  title: %s\n", t.Title)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addDescription, "description", "", "task description")
	addCmd.Flags().StringArrayVar(&addTags, "tag", nil, "tag (repeatable)")
	rootCmd.AddCommand(addCmd)
}
