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
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the status of the active deployment's workers",
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

			state, statuses, err := orch.Status(ctx)
			if err != nil {
				if errors.Is(err, orchestrator.ErrNoDeployment) {
					log.Fatal().Msg("No active deployment")
				}
				log.Fatal().Err(err).Msg("Status check failed")
			}

			log.Info().Msgf("Deployment started at %s with %d workers", state.DeployedAt.Format("2006-01-02 15:04:05"), len(state.Workers))
			for name, status := range statuses {
				record := state.Workers[name]
				log.Info().
					Str("worker", name).
					Str("status", string(status)).
					Msgf("Range %s to %s", record.Assignment.Start.Format("2006-01-02 15:04"), record.Assignment.End.Format("2006-01-02 15:04"))
			}
		},
	}
)
