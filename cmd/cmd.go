package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/config"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/database"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/database/migration"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/metrics"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/pool"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/scheduler"
)

var errMissingDatabaseURL = errors.New("database url is required")

func HubCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	overrideFromFlags(c, cfg)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if cfg.DatabaseURL == "" {
		return errMissingDatabaseURL
	}
	if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	db := database.NewDatabase(conn)
	defer db.Close()

	workers := pool.New(db, db,
		pool.WithPollInterval(cfg.PollInterval),
		pool.WithShutdownGrace(cfg.ShutdownGrace),
	)
	hub := scheduler.New(db, workers, cfg.SchedulerInterval)

	var metricsHandler http.Handler
	if cfg.MetricsAddr != "" {
		metricsHandler = metrics.Handler(metrics.NewRegistry())
	}

	err = run(ctx, cfg, hub, metricsHandler, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func overrideFromFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("database-url") {
		cfg.DatabaseURL = c.String("database-url")
	}
	if c.IsSet("migrations-folder") {
		cfg.MigrationsFolder = c.String("migrations-folder")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()

	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func run(ctx context.Context, cfg *config.Config, hub HubService, metricsHandler http.Handler, logger *zap.Logger) error {
	if err := hub.Start(ctx); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		hub.Stop()
		logger.Info("context done")
		return ctx.Err()
	})

	if metricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		srv := &http.Server{
			Handler:      mux,
			Addr:         cfg.MetricsAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}

		eg.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return eg.Wait()
}
