package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// putCmd represents the put command.
var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Put a key-value pair",
	Long: `Put a key-value pair into the ebtd store.

Example:
  ebtd put mykey myvalue`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		key, value := []byte(args[0]), []byte(args[1])
		if _, err := container.Put(key, value); err != nil {
			return fmt.Errorf("putting key: %w", err)
		}

		fmt.Printf("stored %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
