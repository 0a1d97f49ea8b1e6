package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ebtdb/ebtd/pkg/api"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the ebtd REST API server.

Example:
  ebtd serve --port=8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		fmt.Printf("ebtd: serving %s on port %d\n", dataDir, port)
		return api.StartServer(container, api.ServerConfig{Port: port})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}
