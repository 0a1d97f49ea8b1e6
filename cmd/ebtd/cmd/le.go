package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// leCmd represents the le (less-than-or-equal bounded lookup) command.
var leCmd = &cobra.Command{
	Use:   "le <key>",
	Short: "Find the nearest stored key <= the given key",
	Long: `Find the nearest stored key less than or equal to key and print
its value.

Example:
  ebtd le mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		k, v, ok := container.LookupLE([]byte(args[0]))
		if !ok {
			fmt.Println("no matching key")
			return nil
		}

		fmt.Printf("%s -> %s\n", string(k), string(v))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(leCmd)
}
