package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"peerprobe/commands"
	"peerprobe/config"
	"peerprobe/tracing"
)

func setLogLevel(level string) {
	l, err := log.ParseLevel(level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	log.SetLevel(l)
}

// loadConfig loads the config file when one is given, otherwise runs
// with defaults.
func loadConfig(configFile string) (*config.Config, error) {
	if configFile == "" {
		cfg := config.NewEmptyConfig("")
		cfg.DataStore.LedgerPath = ""
		return cfg, nil
	}
	return config.NewConfigFromFile(configFile)
}

// main is the entry point of the application.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		configFile  string
		logLevel    string
		traceEnable bool
		cfg         *config.Config
	)

	root := &cobra.Command{
		Use:           "peerprobe",
		Short:         "Probe Bitcoin peers discovered via DNS seeds with a bounded version/verack handshake",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "Log level")
	root.PersistentFlags().BoolVar(&traceEnable, "trace", false, "Emit OpenTelemetry spans to stdout")

	var traceShutdown func(context.Context) error
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		setLogLevel(logLevel)

		shutdown, err := tracing.Setup(traceEnable)
		if err != nil {
			return err
		}
		traceShutdown = shutdown

		if cmd.Name() == "init" {
			cfg = config.NewEmptyConfig(configFile)
			return nil
		}
		loaded, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if traceShutdown != nil {
			_ = traceShutdown(context.Background())
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				log.Fatal("Config file not specified")
			}
			return commands.RunInit(ctx, cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "seeds",
		Short: "List the built-in DNS seed hostnames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunSeeds(ctx, cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "resolve <seed index|hostname>",
		Short: "Resolve one DNS seed into candidate peer addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunResolve(ctx, cfg, args[0])
		},
	})

	var seedIdx, peerIdx int
	handshakeCmd := &cobra.Command{
		Use:   "handshake [host:port]",
		Short: "Perform one bounded handshake against a peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return commands.RunHandshake(ctx, cfg, args[0])
			}
			if !cmd.Flags().Changed("seed") || !cmd.Flags().Changed("peer") {
				return errors.New("pass a host:port argument, or both --seed and --peer")
			}
			return commands.RunHandshakeByIndex(ctx, cfg, seedIdx, peerIdx)
		},
	}
	handshakeCmd.Flags().IntVar(&seedIdx, "seed", 0, "Seed table index to resolve")
	handshakeCmd.Flags().IntVar(&peerIdx, "peer", 0, "Index into the resolved addresses")
	root.AddCommand(handshakeCmd)

	var interval time.Duration
	var metricsAddr string
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Resolve all seeds and handshake candidates until one completes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunProbe(ctx, cfg, interval, metricsAddr)
		},
	}
	probeCmd.Flags().DurationVar(&interval, "interval", 0, "Re-run probe rounds on this interval (0 = single round)")
	probeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	root.AddCommand(probeCmd)

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Dump recorded handshake outcomes from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStatus(ctx, cfg)
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
