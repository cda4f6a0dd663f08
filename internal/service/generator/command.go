package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aosc-dev/repo-manifest/internal/catalog"
	"github.com/aosc-dev/repo-manifest/internal/logger"
	"github.com/aosc-dev/repo-manifest/internal/manifest"
	"github.com/aosc-dev/repo-manifest/internal/scanner"
)

const (
	// ManifestDirName is the manifest directory under the release tree root.
	ManifestDirName = "manifest"
	// RecipeFilename is the tarball manifest document.
	RecipeFilename = "recipe.json"
	// LivekitFilename is the live image manifest document.
	LivekitFilename = "livekit.json"

	// manifestFilePermissions is the file mode for generated manifests,
	// which are published by a web server.
	manifestFilePermissions = 0o644
)

var (
	// ErrNoTarballs is returned when the release tree holds no install media.
	ErrNoTarballs = errors.New("no tarball was found")
	// ErrNoImages is returned when the release tree holds no live images.
	ErrNoImages = errors.New("no image was found")
)

// Options controls one manifest generation run.
type Options struct {
	// ConfigPath is the path to the TOML release configuration.
	ConfigPath string
	// FastXz selects the index-based xz size probe over full decompression.
	FastXz bool
	// Workers caps concurrent file probes. Zero means one per CPU.
	Workers int
}

// Run loads the release catalog, scans the release tree and writes both
// manifest documents. A failure in one document does not stop the other
// from being written, but any failure fails the run.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "repo-manifest")

	logger.InfoKV(ctx, "Reading release config", "path", opts.ConfigPath)

	c, err := catalog.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load release config: %w", err)
	}

	s := scanner.New(c.Path(), scanner.Config{
		FastXz:  opts.FastXz,
		Workers: opts.Workers,
	})

	manifestDir := filepath.Join(c.Path(), ManifestDirName)
	if err = os.MkdirAll(manifestDir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	logger.Info(ctx, "Preflight scanning")

	recipeErr := writeManifest(ctx, filepath.Join(manifestDir, RecipeFilename), func() ([]byte, error) {
		return generateRecipe(ctx, c, s, manifestDir)
	})
	livekitErr := writeManifest(ctx, filepath.Join(manifestDir, LivekitFilename), func() ([]byte, error) {
		return generateLivekit(ctx, s, manifestDir)
	})

	if err = errors.Join(recipeErr, livekitErr); err != nil {
		return err
	}

	logger.Info(ctx, "Manifest generated successfully")

	return nil
}

// writeManifest runs one generation step and persists its output.
func writeManifest(ctx context.Context, path string, generate func() ([]byte, error)) error {
	data, err := generate()
	if err != nil {
		logger.ErrorKV(ctx, "Could not gather release information", "manifest", path, "error", err)

		return err
	}

	if err = os.WriteFile(path, data, manifestFilePermissions); err != nil {
		logger.ErrorKV(ctx, "Could not write the manifest", "manifest", path, "error", err)

		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// generateRecipe scans install media and assembles the recipe document,
// rescanning incrementally against the previous recipe when possible.
func generateRecipe(
	ctx context.Context,
	c *catalog.ReleaseCatalog,
	s *scanner.Scanner,
	manifestDir string,
) ([]byte, error) {
	files, err := s.CollectInstallMedia(ctx)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrNoTarballs
	}

	var scanned []manifest.Tarball

	previous, err := os.ReadFile(filepath.Join(manifestDir, RecipeFilename))
	if err != nil {
		logger.WarnKV(ctx, "Failed to read the previous manifest, falling back to full scan", "error", err)

		filtered := s.Filter(ctx, files, c)
		logger.InfoKV(ctx, "Scanning tarballs", "count", len(filtered))

		scanned, err = s.Scan(ctx, filtered, false)
	} else {
		scanned, err = s.SmartScan(ctx, previous, c, files)
	}

	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Generating manifest")

	variants := manifest.AssembleVariants(ctx, c, scanned)

	return manifest.EncodeRecipe(manifest.AssembleRecipe(c, variants))
}

// generateLivekit scans live images into a flat tarball list, rescanning
// incrementally against the previous livekit manifest when possible.
func generateLivekit(ctx context.Context, s *scanner.Scanner, manifestDir string) ([]byte, error) {
	files, err := s.CollectImages(ctx)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var scanned []manifest.Tarball

	existing, err := readPreviousImages(filepath.Join(manifestDir, LivekitFilename))
	if err != nil {
		logger.WarnKV(ctx, "Failed to read the previous manifest, falling back to full scan", "error", err)
		logger.InfoKV(ctx, "Scanning images", "count", len(files))

		scanned, err = s.Scan(ctx, files, true)
	} else {
		scanned, err = s.Incremental(ctx, files, existing, true)
	}

	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Generating manifest")

	return manifest.EncodeTarballList(scanned)
}

// readPreviousImages loads the flat tarball list of a previous livekit manifest.
func readPreviousImages(path string) ([]manifest.Tarball, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return manifest.DecodeTarballList(data)
}
