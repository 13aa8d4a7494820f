package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configs "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/env"
	customLogger "github.com/ethsweep/ethsweep/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "ethsweep",
		Short: "Extract and summarize notable Ethereum transactions over a time range",
		Long: "ethsweep walks a time range of the Ethereum chain, classifies whale transfers " +
			"and validator deposits per interval and writes summary CSVs. It can run the " +
			"extraction locally or fan it out across a fleet of short-lived worker VMs.",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	rootCmd.PersistentFlags().String("rpc-url", "", "Ethereum JSON-RPC endpoint")
	rootCmd.PersistentFlags().Int("rpc-requestTimeoutMs", 0, "Timeout for a single RPC request in milliseconds")
	rootCmd.PersistentFlags().Int("rpc-fetchDelayMs", 0, "Milliseconds to wait between block fetches")
	rootCmd.PersistentFlags().String("range-start", "", "Start of the time range (YYYY-MM-DD-HH:MM, UTC)")
	rootCmd.PersistentFlags().String("range-end", "", "End of the time range (YYYY-MM-DD-HH:MM, UTC)")
	rootCmd.PersistentFlags().String("interval-spanKind", "", "Interval unit: day, hour or minute")
	rootCmd.PersistentFlags().Float64("interval-spanLength", 0, "Interval length as a multiple of the unit")
	rootCmd.PersistentFlags().Bool("interval-aligned", false, "Align interval boundaries to the unit")
	rootCmd.PersistentFlags().String("sampling-policy", "", "Block visit policy: exhaustive or sampled")
	rootCmd.PersistentFlags().Int("sampling-observationBudget", 0, "Max blocks to visit per interval when sampling")
	rootCmd.PersistentFlags().String("output-directory", "", "Directory for summary CSVs and the status file")
	rootCmd.PersistentFlags().Int("orchestrator-workers", 0, "Number of worker VMs to deploy")
	rootCmd.PersistentFlags().StringSlice("orchestrator-endpoints", nil, "RPC endpoints assigned to workers round-robin")
	rootCmd.PersistentFlags().String("orchestrator-project", "", "GCP project to create worker VMs in")
	rootCmd.PersistentFlags().String("orchestrator-zone", "", "GCP zone for worker VMs")
	rootCmd.PersistentFlags().String("orchestrator-dataDir", "", "Local directory for collected worker outputs")
	rootCmd.PersistentFlags().String("log-level", "", "Log level to use for the application")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Whether to prettify the log output")
	viper.BindPFlag("rpc.url", rootCmd.PersistentFlags().Lookup("rpc-url"))
	viper.BindPFlag("rpc.requestTimeoutMs", rootCmd.PersistentFlags().Lookup("rpc-requestTimeoutMs"))
	viper.BindPFlag("rpc.fetchDelayMs", rootCmd.PersistentFlags().Lookup("rpc-fetchDelayMs"))
	viper.BindPFlag("range.start", rootCmd.PersistentFlags().Lookup("range-start"))
	viper.BindPFlag("range.end", rootCmd.PersistentFlags().Lookup("range-end"))
	viper.BindPFlag("interval.spanKind", rootCmd.PersistentFlags().Lookup("interval-spanKind"))
	viper.BindPFlag("interval.spanLength", rootCmd.PersistentFlags().Lookup("interval-spanLength"))
	viper.BindPFlag("interval.aligned", rootCmd.PersistentFlags().Lookup("interval-aligned"))
	viper.BindPFlag("sampling.policy", rootCmd.PersistentFlags().Lookup("sampling-policy"))
	viper.BindPFlag("sampling.observationBudget", rootCmd.PersistentFlags().Lookup("sampling-observationBudget"))
	viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("output-directory"))
	viper.BindPFlag("orchestrator.workers", rootCmd.PersistentFlags().Lookup("orchestrator-workers"))
	viper.BindPFlag("orchestrator.endpoints", rootCmd.PersistentFlags().Lookup("orchestrator-endpoints"))
	viper.BindPFlag("orchestrator.project", rootCmd.PersistentFlags().Lookup("orchestrator-project"))
	viper.BindPFlag("orchestrator.zone", rootCmd.PersistentFlags().Lookup("orchestrator-zone"))
	viper.BindPFlag("orchestrator.dataDir", rootCmd.PersistentFlags().Lookup("orchestrator-dataDir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(collectCmd)
}

func initConfig() {
	env.Load()
	if err := configs.LoadConfig(cfgFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	customLogger.InitLogger()
}
