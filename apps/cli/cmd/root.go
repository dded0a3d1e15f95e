package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "apiprobe",
	Short: "Declarative HTTP API checks from plain scenario files.",
	Long: `apiprobe runs declarative CRUD scenarios against an HTTP API and
reports pass/fail per scenario. Scenarios are plain YAML or JSON records:
a request to issue and the status code and body fields to expect.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
