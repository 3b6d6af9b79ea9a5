package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/trogers1052/investment-simulator/internal/api"
	"github.com/trogers1052/investment-simulator/internal/cache"
	"github.com/trogers1052/investment-simulator/internal/config"
	"github.com/trogers1052/investment-simulator/internal/database"
	"github.com/trogers1052/investment-simulator/internal/investment"
	"github.com/trogers1052/investment-simulator/internal/kafka"
	"github.com/trogers1052/investment-simulator/internal/logging"
	"github.com/trogers1052/investment-simulator/internal/market"
	"github.com/trogers1052/investment-simulator/internal/operations"
	"github.com/trogers1052/investment-simulator/internal/simulator"
	"github.com/trogers1052/investment-simulator/internal/trigger"
)

func newServeCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the price simulator, trigger engine and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if interval > 0 {
				cfg.Simulator.Interval = interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "price update interval (overrides SIMULATOR_INTERVAL)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, File: cfg.Log.File})

	securities, err := market.NewLedger(market.DefaultSecurities())
	if err != nil {
		return fmt.Errorf("failed to load securities: %w", err)
	}
	ops := operations.NewLedger()

	res, err := openResources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	engine := trigger.NewEngine(securities, ops, trigger.NewStore(), logger, res.sinks...)
	sim := simulator.New(securities, engine, logger,
		simulator.WithInterval(cfg.Simulator.Interval),
		simulator.WithListeners(res.listeners...),
	)
	svc := investment.NewService(securities, ops, engine, logger)

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()

	bgCtx, cancelBackground := context.WithCancel(ctx)
	var background conc.WaitGroup
	defer func() {
		cancelBackground()
		background.Wait()
	}()

	if res.db != nil && cfg.Database.RetentionMaxAge > 0 {
		background.Go(func() {
			database.RunRetention(bgCtx, res.db, cfg.Database.RetentionInterval, cfg.Database.RetentionMaxAge, logger)
		})
	}

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, cfg.Kafka.GroupID, svc, logger)
		background.Go(func() {
			if err := consumer.Start(bgCtx); err != nil {
				logger.Error().Err(err).Msg("Kafka consumer stopped")
			}
		})
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewHTTPHandler(api.NewHandler(svc, logger, res.handlerOpts...), cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// resources holds the optional outbound connections and what they feed
type resources struct {
	sinks       []trigger.Sink
	listeners   []simulator.PriceListener
	handlerOpts []api.HandlerOption
	db          *database.DB

	closers []func() error
	logger  zerolog.Logger
}

// openResources connects the enabled sinks and caches. On error everything
// opened so far is closed.
func openResources(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *resources, err error) {
	res := &resources{logger: logger}
	defer func() {
		if err != nil {
			res.Close()
		}
	}()

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TriggerTopic)
		res.sinks = append(res.sinks, producer)
		res.closers = append(res.closers, producer.Close)
	}

	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, db.Close)
		if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
			return nil, err
		}
		res.db = db
		res.sinks = append(res.sinks, db)
		res.handlerOpts = append(res.handlerOpts, api.WithTriggerArchive(db))
	}

	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, client.Close)
		prices := cache.NewPriceCache(client, cfg.Redis.PriceKey, cfg.Redis.Channel)
		res.listeners = append(res.listeners, prices)
		res.handlerOpts = append(res.handlerOpts, api.WithCachedPrices(prices))
	}

	return res, nil
}

// Close closes every opened resource in reverse order
func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Error().Err(err).Msg("Failed to close resource")
		}
	}
	r.closers = nil
}
