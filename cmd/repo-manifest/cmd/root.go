package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aosc-dev/repo-manifest/internal/logger"
	"github.com/aosc-dev/repo-manifest/internal/service/generator"
	"github.com/aosc-dev/repo-manifest/internal/version"
)

var (
	// configPath to the release configuration TOML file.
	configPath string
	// logLevel selects the minimum log severity.
	logLevel string
	// fastXz enables the index-based xz size probe.
	fastXz bool
	// workers caps concurrent file probes.
	workers int

	// rootCmd represents the base command for generating release manifests.
	rootCmd = &cobra.Command{
		Use:   "repo-manifest",
		Short: "Generate AOSC OS release manifests from a release tree.",
		Long: `Scans the release tree declared in the TOML configuration and writes
recipe.json and livekit.json under its manifest directory.

System tarballs and squashfs images are grouped by edition using the
configuration's distro declarations, live ISO images are listed flat.
Previously generated manifests are reused so only new files are probed.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &generator.Options{
				ConfigPath: configPath,
				FastXz:     fastXz,
				Workers:    workers,
			}

			return generator.Run(ctx, options)
		},
	}
)

// Execute runs the repo-manifest CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "path to release configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.Flags().BoolVar(&fastXz, "fast-xz", false, "size xz tarballs from the stream index instead of decompressing")
	rootCmd.Flags().IntVarP(&workers, "workers", "j", 0, "number of concurrent file probes (0 = one per CPU)")
}
