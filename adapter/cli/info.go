package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/store"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the open store's kind and address",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		st := app.Tasks.Store()
		fmt.Printf("Kind:    %s\n", st.Kind())
		fmt.Printf("Address: %s\n", st.Address())
		if st.Kind() == store.KindLocal {
			fmt.Println("Running in local mode; the address is not shareable for peer sync.")
		} else {
			fmt.Println("Share the address with peers to sync against the same database.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
