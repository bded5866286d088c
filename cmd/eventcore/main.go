// Command eventcore exercises an event bus wired to a component registry, a
// logging subscriber and a persistent failure journal.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventcore/pkg/eventcore/config"
)

var (
	configPath string
	envFile    string
	dbPath     string
	logLevel   string
	jsonOutput bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "eventcore <command>",
	Short:         "Drive an in-process event bus from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var envFiles []string
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}

		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("db") {
			dbPath = cfg.String("failure_db", dbPath)
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.String("log_level", logLevel)
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.yaml, .json or .env)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load into the environment (default .env if present)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "eventcore-failures.db", "SQLite failure journal path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(failuresCmd)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
