// Package main provides the jobtriage command: the approval server, the mail
// and chat monitors, and one-shot commands for each pipeline stage.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	verbose    bool
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "jobtriage",
	Short: "Job application triage and approval",
	Long: `jobtriage watches an inbox and a chat channel for job descriptions, decides
which are worth applying to, generates a tailored resume PDF and application
email for each, and queues them for human approval before anything is sent.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (overrides environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print formatted details instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json, color")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
