package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charlesng35/estatehub/internal/database"
	"github.com/charlesng35/estatehub/pkg/logger"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed roles and permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := prepareConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() // best effort

			log := logger.WithModule("migrate")

			db, err := initialiseDatabase(cfg)
			if err != nil {
				return err
			}
			if err := database.Close(db); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}

			log.Info("migrations complete")
			return nil
		},
	}
}
