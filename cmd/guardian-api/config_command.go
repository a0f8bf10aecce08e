package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/guardian-agent/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, configRows(cfg)))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	})

	return configCmd
}

func configRows(cfg *config.Config) [][]string {
	return [][]string{
		{"server.addr", cfg.Server.Addr},
		{"server.max_frame_bytes", strconv.Itoa(cfg.Server.MaxFrameBytes)},
		{"server.allowed_origins", strings.Join(cfg.Server.AllowedOrigins, ", ")},
		{"server.request_timeout_seconds", strconv.Itoa(cfg.Server.RequestTimeoutSeconds)},
		{"llm.provider", string(cfg.LLM.Provider)},
		{"llm.api_key", maskSecret(cfg.LLM.APIKey)},
		{"llm.model", cfg.LLM.Model},
		{"llm.base_url", cfg.LLM.BaseURL},
		{"llm.use_vertex", yesNo(cfg.LLM.UseVertex)},
		{"llm.gcp_project", cfg.LLM.GCPProject},
		{"llm.gcp_location", cfg.LLM.GCPLocation},
		{"llm.timeout_seconds", strconv.Itoa(cfg.LLM.TimeoutSeconds)},
		{"sessions.max_age_hours", strconv.Itoa(cfg.Sessions.MaxAgeHours)},
		{"sessions.sweep_interval_minutes", strconv.Itoa(cfg.Sessions.SweepIntervalMinutes)},
		{"storage.backend", cfg.Storage.Backend},
		{"storage.gcp_project", cfg.Storage.GCPProject},
		{"storage.collection", cfg.Storage.Collection},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"tracing.enabled", yesNo(cfg.Tracing.Enabled)},
		{"tracing.service_name", cfg.Tracing.ServiceName},
	}
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
