package cmd

import (
	"fmt"
	"log"
	"os"

	"groovebox/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "groovebox",
	Short: "Groovebox is a self-hosted song catalog and player backend.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting groovebox server...")
		// server.Start handles its own configuration and startup logging.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
