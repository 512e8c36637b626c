package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/simgym"
	"github.com/aretw0/simgym/internal/cli"
	httpAdapter "github.com/aretw0/simgym/pkg/adapters/http"
	"github.com/aretw0/simgym/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the simulator through a number of episodes",
	Long: `Runs the simulator for --episodes episodes, stepping each with a fixed action
(or a random one within --action-min/--action-max) until the control plane
reports done or --max-steps is reached. With a recorder URL configured, every
transition is posted to the recorder and each episode is closed there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		episodes, _ := cmd.Flags().GetInt("episodes")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		action, _ := cmd.Flags().GetFloat64("action")
		actionMin, _ := cmd.Flags().GetFloat64("action-min")
		actionMax, _ := cmd.Flags().GetFloat64("action-max")
		recorderURL, _ := cmd.Flags().GetString("recorder")
		if recorderURL == "" {
			recorderURL = cfg.Recorder.URL
		}

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			srv := &http.Server{
				Addr:              addr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("Serving metrics", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Metrics server failed", "err", err)
				}
			}()
			defer srv.Close()
		}

		env, err := simgym.New(cfg,
			simgym.WithLogger(logger),
			simgym.WithLifecycleHooks(cli.MergeHooks(metrics.Hooks(), cli.DebugHooks(logger))),
		)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := cli.DriverOptions{
			Episodes: episodes,
			MaxSteps: maxSteps,
			Action:   action,
			Logger:   logger,
		}
		if actionMin < actionMax {
			opts.ActionRange = &cli.ActionRange{Min: actionMin, Max: actionMax}
		}
		if recorderURL != "" {
			opts.Recorder = httpAdapter.NewRecorderClient(recorderURL, httpAdapter.WithLogger(logger))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		summaries, err := cli.RunEpisodes(ctx, env, opts)

		enc := json.NewEncoder(os.Stdout)
		for _, s := range summaries {
			_ = enc.Encode(s)
		}

		if sig := ctx.Signal(); sig != nil {
			logger.Info("Interrupted, stopping simulator", "signal", sig)
			return nil
		}
		if err != nil && !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("run failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntP("episodes", "n", 1, "Number of episodes to run")
	runCmd.Flags().Int("max-steps", 1000, "Maximum steps per episode (0 = until done)")
	runCmd.Flags().Float64P("action", "a", 0, "Fixed action sent on every step")
	runCmd.Flags().Float64("action-min", 0, "Lower bound for random actions")
	runCmd.Flags().Float64("action-max", 0, "Upper bound for random actions (enabled when greater than --action-min)")
	runCmd.Flags().String("recorder", "", "Recorder base URL (overrides recorder.url)")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
}
