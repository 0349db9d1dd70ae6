package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intelbrief/internal/app"
	"intelbrief/internal/config"
	"intelbrief/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "intelbrief",
	Short: "Competitive intelligence monitoring pipeline",
	Long: `intelbrief watches configured sources for content changes, classifies
what changed into structured intelligence events, and mails a daily brief.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, when enabled, the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		return application.Serve(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single pipeline run and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		return application.RunOnce(cmd.Context())
	},
}

func buildApp(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	if configPath != "" {
		cfg = config.LoadFrom(configPath)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := logging.New(cfg.Logging.Level)
	return app.New(ctx, cfg, logger)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, runCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
