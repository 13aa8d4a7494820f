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
	deployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Split the time range across worker VMs and start them",
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

			state, err := orch.Deploy(ctx)
			if err != nil {
				if errors.Is(err, orchestrator.ErrExistingDeployment) {
					log.Fatal().Msg("A deployment is already active, collect or tear it down before deploying again")
				}
				log.Fatal().Err(err).Msg("Deployment failed")
			}
			log.Info().Msgf("Deployed %d workers", len(state.ActiveWorkers()))
		},
	}
)
