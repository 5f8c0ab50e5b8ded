package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/llm-orchestrator/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "json" {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(version.Info())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	rootCmd.Version = version.Version
	rootCmd.AddCommand(versionCmd)
}
