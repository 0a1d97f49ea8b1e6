package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// geCmd represents the ge (greater-than-or-equal bounded lookup) command.
var geCmd = &cobra.Command{
	Use:   "ge <key>",
	Short: "Find the nearest stored key >= the given key",
	Long: `Find the nearest stored key greater than or equal to key and
print its value.

Example:
  ebtd ge mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		k, v, ok := container.LookupGE([]byte(args[0]))
		if !ok {
			fmt.Println("no matching key")
			return nil
		}

		fmt.Printf("%s -> %s\n", string(k), string(v))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geCmd)
}
