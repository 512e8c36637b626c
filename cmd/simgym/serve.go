package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/simgym/pkg/adapters/file"
	httpAdapter "github.com/aretw0/simgym/pkg/adapters/http"
	"github.com/aretw0/simgym/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/simgym/pkg/adapters/redis"
	"github.com/aretw0/simgym/pkg/config"
	"github.com/aretw0/simgym/pkg/observability"
	"github.com/aretw0/simgym/pkg/persistence/middleware"
	"github.com/aretw0/simgym/pkg/ports"
	"github.com/aretw0/simgym/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the experience recorder server",
	Long: `Starts the recorder that buffers experiences and persists one episode per
POST /episode_end, using a file, memory or redis store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Recorder.Addr = addr
		}
		if store, _ := cmd.Flags().GetString("store"); store != "" {
			cfg.Recorder.Store = store
		}
		if err := cfg.ValidateRecorder(); err != nil {
			return err
		}

		store, locker, closeStore, err := openStore(cfg.Recorder, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		if active, fallback, _ := cfg.Recorder.Keys(); active != nil {
			mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
			if err != nil {
				return err
			}
			store = middleware.Chain(store, mw)
			logger.Info("Episode encryption enabled", "fallback_keys", len(fallback))
		}

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)

		recOpts := []session.Option{
			session.WithObserver(metrics),
			session.WithLogger(logger),
		}
		if locker != nil {
			recOpts = append(recOpts, session.WithLocker(locker))
		}
		// Continue numbering after what the store already holds.
		if saved, err := store.List(cmd.Context()); err == nil && len(saved) > 0 {
			recOpts = append(recOpts, session.WithStartEpisode(saved[len(saved)-1]+1))
		}
		recorder := session.NewRecorder(store, recOpts...)

		srv := &http.Server{
			Addr: cfg.Recorder.Addr,
			Handler: httpAdapter.NewRecorderHandler(recorder,
				httpAdapter.WithGatherer(reg),
				httpAdapter.WithServerLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting recorder", "addr", srv.Addr, "store", cfg.Recorder.Store, "episode", recorder.Snapshot().Episode)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			if st := recorder.Snapshot(); st.Buffered > 0 {
				logger.Warn("Unsaved experiences dropped", "episode", st.Episode, "buffered", st.Buffered)
			}
			logger.Info("Recorder stopped gracefully")
		}
		return nil
	},
}

// openStore builds the configured experience store, plus a distributed locker when
// the store is shared between recorder replicas.
func openStore(cfg config.RecorderConfig, logger *slog.Logger) (ports.ExperienceStore, ports.DistributedLocker, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil, func() {}, nil
	case config.StoreRedis:
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisAdapter.DefaultPrefix
		}
		store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithTTL(cfg.Redis.TTL),
			redisAdapter.WithPrefix(prefix),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		locker := redisAdapter.NewLocker(store.Client(), prefix)
		return store, locker, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close redis store", "err", err)
			}
		}, nil
	default:
		return file.New(cfg.Dir), nil, func() {}, nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides recorder.addr)")
	serveCmd.Flags().String("store", "", "Experience store: file, memory or redis (overrides recorder.store)")
}
