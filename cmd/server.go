package cmd

import (
	"groovebox/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the groovebox HTTP server",
	Long:  `Start the groovebox HTTP server, serving the catalog API together with the static audio and cover assets.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
