package main

import (
	"errors"
	"log"

	"github.com/UkralStul/social-blog-service/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the PostgreSQL schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL (or --db) is required for migrate")
			}
			store, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.Printf("migrate %s: done", args[0])
			return nil
		},
	}
}
