package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/fleet-billing/api"
	"github.com/warp/fleet-billing/config"
	"github.com/warp/fleet-billing/store"
	"github.com/warp/fleet-billing/store/memory"
	"github.com/warp/fleet-billing/store/postgres"
	"github.com/warp/fleet-billing/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		handler := api.NewHandler(s, api.Options{
			TenantID:            cfg.Billing.TenantID,
			Rate:                cfg.Billing.Rate,
			Preset:              cfg.Billing.Preset,
			MaxConcurrentAssets: cfg.Report.MaxConcurrentAssets,
		})
		if err := handler.EnsureConfig(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: api.RequestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server forced to shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("store", cfg.Store.Driver),
			zap.String("tenant", cfg.Billing.TenantID),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// openStore opens the configured backend. PostgreSQL schemas are migrated
// on open; SQLite creates its tables itself.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory":
		zap.L().Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil

	case "postgres":
		pg, err := postgres.New(ctx, sc.DatabaseURL, &postgres.PoolConfig{MaxConns: sc.MaxConns})
		if err != nil {
			return nil, eris.Wrap(err, "open postgres store")
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, eris.Wrap(err, "migrate postgres store")
		}
		return pg, nil

	case "sqlite":
		if sc.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
				return nil, eris.Wrap(err, "create sqlite directory")
			}
		}
		s, err := sqlite.New(sc.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite store")
		}
		return s, nil
	}
	return nil, eris.Errorf("unknown store driver %q", sc.Driver)
}
