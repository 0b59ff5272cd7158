package cmd

import (
	"fmt"
	"log"
	"os"

	"resona/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resona",
	Short: "Resona is a music streaming and chat backend.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting Resona server...")
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
