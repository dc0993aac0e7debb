package main

import (
	"fmt"
	"log"
	"os"

	"github.com/UkralStul/social-blog-service/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := newRootCmd(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd собирает CLI. Значения флагов по умолчанию берутся из окружения.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "social-blog",
		Short:         "Social blog service: profiles, posts, comments, reactions and follows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage type (in-memory or postgres)")
	root.PersistentFlags().StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "PostgreSQL connection URL")
	root.PersistentFlags().Int32Var(&cfg.DBMaxConns, "db-max-conns", cfg.DBMaxConns, "Maximum connections in the pool")
	root.PersistentFlags().BoolVar(&cfg.SQLLog, "sql-log", cfg.SQLLog, "Log every SQL statement")

	root.AddCommand(newServeCmd(cfg), newMigrateCmd(cfg))
	return root
}
