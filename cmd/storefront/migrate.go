package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"record-storefront/internal/config"
	"record-storefront/internal/logging"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendDatabase {
				return fmt.Errorf("migrate requires storage.backend=%s", config.BackendDatabase)
			}
			logger, err := commonRun(cfg)
			if err != nil {
				return err
			}

			stores, err := createStores(cmd.Context(), cfg, true, logging.Component(logger, "migrate"))
			if err != nil {
				return err
			}
			stores.close()
			return nil
		},
	}
}
