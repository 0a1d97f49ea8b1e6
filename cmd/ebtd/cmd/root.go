/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ebtdb/ebtd/pkg/config"
	"github.com/ebtdb/ebtd/pkg/di"
)

var dataDir string

type storeCtxKey struct{}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ebtd",
	Short: "ebtd - an elastic-binary-tree-backed key/value store",
	Long: `ebtd is an embeddable key-value store built on elastic binary
trees, with a write-ahead log for durability and secondary indexes over
JSON record fields.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		cfg.DataDir = dataDir
		cfg.WALDir = ""

		container, err := di.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), storeCtxKey{}, container))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "./data", "Data directory for the store")
}

// containerFrom recovers the di.Container stashed in cmd's context by
// PersistentPreRunE.
func containerFrom(cmd *cobra.Command) (*di.Container, error) {
	c, ok := cmd.Context().Value(storeCtxKey{}).(*di.Container)
	if !ok {
		return nil, fmt.Errorf("store not found in command context")
	}
	return c, nil
}
