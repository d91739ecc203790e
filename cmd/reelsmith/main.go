// Package main provides the entry point for the reelsmith pipeline
// server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reelsmith",
	Short: "Short-film generation pipeline orchestrator",
	Long:  "Reelsmith turns a creative brief into a finished short video through a resumable six-stage pipeline: story analysis, shot planning, reference assets, keyframes, clips, and final assembly.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
