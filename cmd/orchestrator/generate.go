package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
	"github.com/your-org/llm-orchestrator/pkg/sdk"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a completion through the fallback chain",
	Long:  "Generate sends the prompt (or stdin, raw text or a JSON payload) to the primary provider and falls back when it fails.",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().String("system", "", "System instruction")
	generateCmd.Flags().Float64("temperature", adapters.DefaultTemperature, "Sampling temperature")
	generateCmd.Flags().Int("max-tokens", 0, "Maximum output tokens (0 uses the provider default)")
	generateCmd.Flags().String("safety", "", "Safety level: strict, balanced, raw")
	generateCmd.Flags().Bool("json", false, "Ask for JSON output")
	generateCmd.Flags().String("tools", "", "JSON file with a tool schema map")
	generateCmd.Flags().StringP("output", "o", "text", "Output format: text or json")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readRequest(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	rt, cfg, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(cmd.Context()) }()

	if err := applyFlags(cmd, &req, rt.Defaults); err != nil {
		return err
	}

	out, genErr := rt.Generate(cmd.Context(), callerRole(cfg), req)
	w := cmd.OutOrStdout()
	if output == "json" {
		view := map[string]any{"request_id": out.RequestID, "provider": out.Provider}
		if genErr != nil {
			view["error"] = genErr.Error()
		} else {
			view["response"] = out.Response
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
		return genErr
	}
	if genErr != nil {
		for _, a := range out.Attempts {
			fmt.Fprintf(cmd.ErrOrStderr(), "- %s: %s %s %v\n", a.Provider, a.Outcome, a.Reason, a.Err)
		}
		return genErr
	}

	fmt.Fprintln(w, out.Response.Text)
	for _, call := range out.Response.ToolCalls {
		args, _ := json.Marshal(call.Arguments)
		fmt.Fprintf(w, "tool_call %s %s\n", call.Name, args)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "provider=%s model=%s confidence=%s tokens=%d request_id=%s\n",
		out.Provider, out.Response.Model, out.Response.ConfidenceState,
		out.Response.TokenUsage[adapters.UsageTotal], out.RequestID)
	return nil
}

func readRequest(stdin io.Reader, args []string) (adapters.GenerateRequest, error) {
	if len(args) > 0 {
		return adapters.GenerateRequest{Prompt: strings.Join(args, " ")}, nil
	}
	payload, err := io.ReadAll(stdin)
	if err != nil {
		return adapters.GenerateRequest{}, fmt.Errorf("read stdin: %w", err)
	}
	return sdk.PromptFromInput(payload)
}

// applyFlags overlays explicitly set flags on the request settings, starting
// from defaults when the request carries none.
func applyFlags(cmd *cobra.Command, req *adapters.GenerateRequest, defaults adapters.GenerationSettings) error {
	flags := cmd.Flags()
	if flags.Changed("system") {
		req.System, _ = flags.GetString("system")
	}
	if path, _ := flags.GetString("tools"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read tools: %w", err)
		}
		var tools adapters.ToolSchema
		if err := json.Unmarshal(b, &tools); err != nil {
			return fmt.Errorf("parse tools: %w", err)
		}
		req.Tools = tools
	}

	if !flags.Changed("temperature") && !flags.Changed("max-tokens") && !flags.Changed("safety") && !flags.Changed("json") {
		return nil
	}
	s := defaults
	if req.Settings != nil {
		s = *req.Settings
	}
	if flags.Changed("temperature") {
		s.Temperature, _ = flags.GetFloat64("temperature")
	}
	if flags.Changed("max-tokens") {
		n, _ := flags.GetInt("max-tokens")
		s.MaxTokens = &n
	}
	if flags.Changed("safety") {
		raw, _ := flags.GetString("safety")
		level, err := adapters.ParseSafetyLevel(raw)
		if err != nil {
			return err
		}
		s.Safety = level
	}
	if flags.Changed("json") {
		s.JSONMode, _ = flags.GetBool("json")
	}
	req.Settings = &s
	return nil
}
