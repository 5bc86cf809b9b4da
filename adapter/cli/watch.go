package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/task"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the task list and re-render on every change",
	Long: `Watch the task list. The list re-renders whenever the store reports
a change, including mutations made by peers or other processes.
Interrupt with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		render := func(tasks []task.Task) {
			fmt.Printf("Tasks (%d):\n", len(tasks))
			fmt.Println(strings.Repeat("-", 60))
			for _, t := range tasks {
				printTask(t)
			}
		}

		app.Tasks.OnChange(render)
		render(app.Tasks.Tasks())

		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
