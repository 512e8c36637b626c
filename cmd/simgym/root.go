package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aretw0/simgym/internal/logging"
	"github.com/aretw0/simgym/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simgym",
	Short: "simgym runs an external simulator as a reinforcement learning environment",
	Long: `simgym supervises a black-box simulator process across episodes and steps it
through an HTTP control plane. It also serves the experience recorder that
persists each episode's transitions.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "simgym.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading SIMGYM_* variables")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
}

// setup loads the dotenv file, the configuration and the logger shared by every command.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfgPath, _ := cmd.Flags().GetString("config")
	levelName, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("log-json")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(level)
	if jsonLogs {
		logger = logging.NewJSON(level)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
