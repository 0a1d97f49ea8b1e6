package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getCmd represents the get command.
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a value for a key",
	Long: `Get a value for a key from the ebtd store.

Example:
  ebtd get mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		value, ok, err := container.Get([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("getting key: %w", err)
		}
		if !ok {
			fmt.Println("key not found")
			return nil
		}

		fmt.Printf("%s\n", string(value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
