package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aosc-dev/repo-manifest/internal/config"
	"github.com/aosc-dev/repo-manifest/internal/logger"
)

const (
	// readHeaderTimeout bounds slow clients holding connections open.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds draining in-flight requests on exit.
	shutdownTimeout = 10 * time.Second
)

// Options controls the repo-redirect process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
}

// Run starts the redirect HTTP server and blocks until the context is
// canceled or the server stops. The manifest watcher runs alongside and
// reloads the download indexes whenever the generator rewrites them.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "repo-redirect")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	store := NewStore()

	watcher, err := NewWatcher(settings.ManifestDir, store)
	if err != nil {
		return fmt.Errorf("watch manifest directory: %w", err)
	}
	defer watcher.Close()

	// Serve whatever is on disk right away; the watcher keeps it fresh.
	watcher.LoadAll(ctx)

	go watcher.Run(ctx)

	gin.SetMode(gin.ReleaseMode)

	server := &http.Server{
		Addr:              listenAddress,
		Handler:           newRouter(store, settings),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Redirect server listening",
		"listen_address", listenAddress,
		"manifest_dir", settings.ManifestDir)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Failed to shut down gracefully", "error", err)
		}

		close(done)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}
