package cmd

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

var benchCount int

// benchCmd represents the bench command, a throughput smoke test run as a
// CLI subcommand against a live store instead of go test -bench.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure put/get throughput against the store",
	Long: `Write and then read back --count key/value pairs, reporting
elapsed time and per-operation throughput.

Example:
  ebtd bench --count=10000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		keys := make([][]byte, benchCount)
		for i := range keys {
			keys[i] = []byte(ksuid.New().String())
		}

		putStart := time.Now()
		for _, k := range keys {
			if _, err := container.Put(k, k); err != nil {
				return fmt.Errorf("bench put: %w", err)
			}
		}
		putElapsed := time.Since(putStart)

		getStart := time.Now()
		for _, k := range keys {
			if _, _, err := container.Get(k); err != nil {
				return fmt.Errorf("bench get: %w", err)
			}
		}
		getElapsed := time.Since(getStart)

		fmt.Printf("put: %d ops in %s (%.0f ops/sec)\n", benchCount, putElapsed, float64(benchCount)/putElapsed.Seconds())
		fmt.Printf("get: %d ops in %s (%.0f ops/sec)\n", benchCount, getElapsed, float64(benchCount)/getElapsed.Seconds())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchCount, "count", 1000, "number of key/value pairs to write and read back")
}
