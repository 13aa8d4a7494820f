package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/extractor"
	"github.com/ethsweep/ethsweep/internal/rpc"
)

var (
	extractCmd = &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction locally over the configured time range",
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Cfg.ValidateExtraction(); err != nil {
				log.Fatal().Err(err).Msg("Invalid extraction config")
			}

			// Start Prometheus metrics server
			log.Info().Msg("Starting Metrics Server on port 2112")
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(":2112", nil); err != nil {
					log.Error().Err(err).Msg("Metrics server error")
				}
			}()

			rpcClient, err := rpc.Initialize()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize RPC")
			}
			defer rpcClient.Close()

			runner, err := extractor.NewRunner(rpcClient)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create extraction runner")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runner.Run(ctx); err != nil {
				log.Fatal().Err(err).Msg("Extraction failed")
			}
		},
	}
)
