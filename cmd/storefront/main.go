// Command storefront serves the record store and offers maintenance and
// inspection subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"record-storefront/internal/config"
	"record-storefront/internal/logging"
)

const programName = "storefront"

var configFile string

func main() {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "NFT record storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to config file (default ./storefront.yaml)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.String("indexer-url", "", "GraphQL indexer endpoint")
	flags.String("rpc-url", "", "Ethereum JSON-RPC endpoint")
	for key, flag := range map[string]string{
		"log.level":   "log-level",
		"indexer_url": "indexer-url",
		"rpc_url":     "rpc-url",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "bind flag %s: %v\n", flag, err)
			os.Exit(1)
		}
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand(v))
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(recordsCommand())
	rootCmd.AddCommand(ownedCommand())
	rootCmd.AddCommand(priceCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonRun builds the root logger from cfg and sets GOMAXPROCS.
func commonRun(cfg *config.Config) (*logrus.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	if _, err := maxprocs.Set(maxprocs.Logger(logger.WithField("component", programName).Infof)); err != nil {
		return nil, fmt.Errorf("set GOMAXPROCS: %w", err)
	}
	return logger, nil
}

func mustConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("no config found in context")
	}
	return cfg, nil
}
