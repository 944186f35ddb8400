package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	intconfig "rentcore/internal/config"
	intdb "rentcore/internal/db"
	"rentcore/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := intconfig.LoadEnv()
			if err != nil {
				return err
			}
			logger, err := utils.InitLogger(env.IsProduction())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := intconfig.ConnectDB(env.DSN())
			if err != nil {
				return err
			}
			defer intconfig.CloseDB()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := intconfig.ApplySchema(ctx, db); err != nil {
				return err
			}
			zap.L().Info("schema applied", zap.Int("statements", len(intconfig.Schema)))

			for _, table := range intconfig.Tables {
				if !intdb.HasTable(ctx, db, table) {
					return fmt.Errorf("table %s missing after migrate", table)
				}
			}
			zap.L().Info("tables present", zap.Strings("tables", intconfig.Tables))
			return nil
		},
	}
}
