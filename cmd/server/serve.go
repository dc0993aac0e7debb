package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/social-blog-service/internal/api"
	"github.com/UkralStul/social-blog-service/internal/auth"
	"github.com/UkralStul/social-blog-service/internal/config"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/UkralStul/social-blog-service/internal/storage/inmemory"
	"github.com/UkralStul/social-blog-service/internal/storage/postgres"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	cmd.Flags().BoolVar(&cfg.Seed, "seed", cfg.Seed, "Fill in-memory storage with demo data")
	cmd.Flags().DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Lifetime of issued tokens")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Printf("Starting server with %s storage", cfg.Storage)

	var store storage.Storage
	if cfg.Storage == config.StoragePostgres {
		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		if err := pg.Migrate(ctx, "up"); err != nil {
			pg.Close()
			return err
		}
		store = pg
	} else {
		mem := inmemory.New()
		if cfg.Seed {
			// Заполним данными для демо
			if err := fillWithMockData(ctx, mem); err != nil {
				return err
			}
		}
		store = mem
	}
	defer store.Close()

	srv := api.NewServer(store, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL))
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on http://localhost:%s/", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openPostgres(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	level := logger.Warn
	if cfg.SQLLog {
		level = logger.Info
	}
	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		LogLevel: level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return store, nil
}
