package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aosc-dev/repo-manifest/internal/config"
	"github.com/aosc-dev/repo-manifest/internal/logger"
	"github.com/aosc-dev/repo-manifest/internal/service/redirect"
	"github.com/aosc-dev/repo-manifest/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel selects the minimum log severity.
	logLevel string

	// rootCmd represents the base command for running the redirect server.
	rootCmd = &cobra.Command{
		Use:   "repo-redirect [listen-address]",
		Short: "Run the AOSC OS download redirect server.",
		Long: `Serves download requests from the downloads page, resolving the selected
edition and architecture against the manifests written by repo-manifest.

The manifest directory is watched so regenerated manifests take effect
without a restart. Listen address can be provided as argument to override
config (e.g., :9090, 0.0.0.0:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &redirect.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			}

			return redirect.Run(ctx, options)
		},
	}
)

// Execute runs the repo-redirect CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error, fatal)")
}
