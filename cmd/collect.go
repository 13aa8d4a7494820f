package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/orchestrator"
)

var (
	collectCmd = &cobra.Command{
		Use:   "collect",
		Short: "Wait for workers to finish, download their outputs and merge them",
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Cfg.ValidateOrchestration(); err != nil {
				log.Fatal().Err(err).Msg("Invalid orchestration config")
			}

			orch, err := orchestrator.NewOrchestrator(orchestrator.NewGCloudProvisioner())
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create orchestrator")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := orch.Collect(ctx)
			if err != nil {
				if errors.Is(err, orchestrator.ErrNoDeployment) {
					log.Fatal().Msg("No active deployment")
				}
				log.Fatal().Err(err).Msg("Collection failed")
			}

			log.Info().Msgf("Downloaded output from %d workers", len(report.Downloaded))
			for _, name := range report.DownloadFailed {
				log.Warn().Str("worker", name).Msg("Worker completed but its output could not be downloaded")
			}
			for _, name := range report.Failed {
				log.Warn().Str("worker", name).Msg("Worker failed before completing its range")
			}
			if report.Truncation != "" {
				log.Warn().Msgf("Merged output is incomplete: %s", report.Truncation)
			}
			log.Info().Msgf("Wrote %d merged interval summaries to %s", report.MergedRows, report.OutputPath)
		},
	}
)
