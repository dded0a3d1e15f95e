package cmd

import (
	"fmt"
	"os"

	"github.com/apiprobe/apiprobe/packages/scenario"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenarios.yaml>",
	Short: "Validate a scenario file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios, err := scenario.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitParseError)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d scenarios OK\n", args[0], len(scenarios))
		for _, sc := range scenarios {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s -> %d\n",
				sc.Name, sc.Request.Method, sc.Request.Path, sc.Expect.Status)
		}
		return nil
	},
}
