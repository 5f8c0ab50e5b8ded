package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities [provider]",
	Short: "Show a provider's capability descriptor",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCapabilities,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers and the candidate order",
	Args:  cobra.NoArgs,
	RunE:  runProviders,
}

func init() {
	capabilitiesCmd.Flags().StringP("output", "o", "yaml", "Output format: yaml or json")

	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(providersCmd)
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	rt, cfg, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(cmd.Context()) }()

	provider := ""
	if len(args) == 1 {
		provider = args[0]
	}
	caps, err := rt.Capabilities(callerRole(cfg), provider)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(caps)
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(caps)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func runProviders(cmd *cobra.Command, _ []string) error {
	rt, _, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(cmd.Context()) }()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROLE\tPOSITION")
	for _, p := range rt.Providers() {
		role, pos := "-", "-"
		switch {
		case p.Primary:
			role, pos = "primary", fmt.Sprint(p.Position)
		case p.Candidate:
			role, pos = "fallback", fmt.Sprint(p.Position)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, role, pos)
	}
	return tw.Flush()
}
