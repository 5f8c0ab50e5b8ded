package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/llm-orchestrator/internal/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace <trace.json>",
	Short: "Print a saved generation trace",
	Long:  "Trace prints the candidate steps recorded for one generate call (written to TRACE_OUTPUT).",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	tr, err := trace.LoadFromFile(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "request %s primary=%s outcome=%s provider=%s latency=%s\n",
		tr.RequestID, tr.Primary, tr.Outcome, tr.Provider, tr.TotalLatency)
	if tr.Error != "" {
		fmt.Fprintf(w, "error: %s\n", tr.Error)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPROVIDER\tOUTCOME\tREASON\tTRIES\tDURATION\tERROR")
	for _, s := range tr.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", s.Index, s.Provider, s.Outcome, s.Reason, s.Tries, s.Duration, s.Error)
	}
	return tw.Flush()
}
