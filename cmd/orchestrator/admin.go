package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/llm-orchestrator/internal/audit"
	"github.com/your-org/llm-orchestrator/internal/security"
	"github.com/your-org/llm-orchestrator/internal/usage"
)

var auditExportCmd = &cobra.Command{
	Use:   "audit-export <audit.jsonl> [output.csv]",
	Short: "Convert the JSONL audit log to CSV",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAuditExport,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize the usage ledger per provider",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().Duration("since", 24*time.Hour, "Window to summarize")
	usageCmd.Flags().Int("recent", 0, "Also list the N most recent calls")
	usageCmd.Flags().StringP("output", "o", "text", "Output format: text or json")

	rootCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(usageCmd)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := security.DefaultPolicy().Authorize(callerRole(cfg), security.ActionAuditExport); err != nil {
		return err
	}
	input, output := args[0], "audit.csv"
	if len(args) == 2 {
		output = args[1]
	}
	if err := audit.ExportJSONLToCSV(input, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "audit export complete: %s -> %s\n", input, output)
	return nil
}

func runUsage(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if err := security.DefaultPolicy().Authorize(callerRole(cfg), security.ActionUsage); err != nil {
		return err
	}
	if cfg.UsageDBPath == "" {
		return fmt.Errorf("usage ledger is disabled: set USAGE_DB_PATH")
	}
	ledger, err := usage.Open(cfg.UsageDBPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	since, _ := cmd.Flags().GetDuration("since")
	recentN, _ := cmd.Flags().GetInt("recent")
	output, _ := cmd.Flags().GetString("output")

	summary, err := ledger.Summary(cmd.Context(), time.Now().Add(-since))
	if err != nil {
		return err
	}
	var recent []usage.Entry
	if recentN > 0 {
		if recent, err = ledger.Recent(cmd.Context(), recentN); err != nil {
			return err
		}
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"summary": summary, "recent": recent})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tCALLS\tOK\tFALLBACK\tEXHAUSTED\tPROMPT\tCOMPLETION\tAVG_MS")
	for _, s := range summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n", s.Provider, s.Calls, s.Successes,
			s.FallbackAnswers, s.Exhausted, s.PromptTokens, s.CompletionTokens, s.AvgLatencyMS)
	}
	if len(recent) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CREATED\tREQUEST\tPROVIDER\tSTATUS\tCONFIDENCE\tATTEMPTS")
		for _, e := range recent {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", e.CreatedAt.Format(time.RFC3339), e.RequestID,
				e.Provider, e.Status, e.Confidence, e.Attempts)
		}
	}
	return tw.Flush()
}
