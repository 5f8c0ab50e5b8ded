package main

import (
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/your-org/llm-orchestrator/internal/app"
	"github.com/your-org/llm-orchestrator/internal/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the orchestrator over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	_ = viper.BindPFlag("http_addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, cfg, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(cmd.Context()) }()

	addr := cfg.HTTPAddr
	if v := viper.GetString("http_addr"); v != "" {
		addr = v
	}

	var tlsCfg *tls.Config
	if cfg.TLS.Enabled() {
		tlsCfg, err = security.ServerTLSConfig(cfg.TLS)
		if err != nil {
			return err
		}
	}

	rt.Logger.Info("serving", "addr", addr, "tls", tlsCfg != nil, "primary", rt.Orchestrator.Primary())
	return app.StartServer(ctx, addr, app.Handler(rt), tlsCfg)
}
