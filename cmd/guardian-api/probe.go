package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/guardian-agent/internal/app/classifier"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Send one connectivity probe to the configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := initLogger(cfg); err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			gen, err := buildGenerator(runCtx, cfg)
			if err != nil {
				return err
			}

			cls := classifier.New(gen, classifier.Options{Timeout: cfg.LLMTimeout()})
			out := cmd.OutOrStdout()
			if !cls.CheckConnectivity(runCtx) {
				return fmt.Errorf("model %s (%s) did not answer the probe", cfg.LLM.Model, cfg.LLM.Provider)
			}
			fmt.Fprintf(out, "model %s (%s) is reachable\n", cfg.LLM.Model, cfg.LLM.Provider)
			return nil
		},
	}
}
