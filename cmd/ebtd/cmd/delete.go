package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command.
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key",
	Long: `Delete a key from the ebtd store.

Example:
  ebtd delete mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		ok, err := container.Delete([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("deleting key: %w", err)
		}
		if !ok {
			fmt.Println("key not found")
			return nil
		}

		fmt.Printf("deleted %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
