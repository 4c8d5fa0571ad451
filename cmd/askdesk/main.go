package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "askdesk",
	Short:   "askdesk — question answering over internal documents",
	Version: version,
	Long: `askdesk answers natural-language questions about an organization's
internal documents, backed by a local document index and the Gemini API.

Run 'askdesk start' to launch the server, then POST questions to /ask.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
