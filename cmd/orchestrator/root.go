package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/your-org/llm-orchestrator/internal/app"
	"github.com/your-org/llm-orchestrator/internal/config"
	"github.com/your-org/llm-orchestrator/internal/security"
)

var rootCmd = &cobra.Command{
	Use:           "orchestrator",
	Short:         "LLM provider orchestrator",
	Long:          "orchestrator sends a generation request to a primary LLM provider and falls back through a declared chain when it fails.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnvFile(cmd)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("env-file", "", "Load provider keys from a dotenv file (default .env when present)")
	rootCmd.PersistentFlags().StringP("manifest", "f", "", "Orchestrator manifest (YAML)")
	rootCmd.PersistentFlags().StringP("primary", "p", "", "Primary provider override")
	rootCmd.PersistentFlags().String("fallback", "", "Comma separated fallback chain override")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("role", "", "Caller role: viewer, operator, admin")

	_ = viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("primary_provider", rootCmd.PersistentFlags().Lookup("primary"))
	_ = viper.BindPFlag("fallback_chain", rootCmd.PersistentFlags().Lookup("fallback"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func initConfig() {
	viper.SetEnvPrefix("ORCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadEnvFile reads a dotenv file before any configuration is resolved.
// Variables already set in the environment win. A missing default .env is
// not an error.
func loadEnvFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// loadConfig layers flags and ORCH_* variables over config.FromEnv.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if v := viper.GetString("manifest"); v != "" {
		cfg.ManifestPath = v
	}
	if v := viper.GetString("primary_provider"); v != "" {
		cfg.PrimaryProvider = v
	}
	if viper.IsSet("fallback_chain") {
		cfg.FallbackChain = config.SplitList(viper.GetString("fallback_chain"))
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := viper.GetString("role"); v != "" {
		cfg.Role = strings.ToLower(v)
	}
	return cfg
}

func callerRole(cfg config.Config) security.Role {
	return security.RoleOr(cfg.Role, security.RoleOperator)
}

func buildRuntime(cmd *cobra.Command) (*app.Runtime, config.Config, error) {
	cfg := loadConfig()
	rt, err := app.Build(cfg, app.Options{Logger: app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)})
	return rt, cfg, err
}
