package redirect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/aosc-dev/repo-manifest/internal/logger"
	"github.com/aosc-dev/repo-manifest/internal/manifest"
	"github.com/aosc-dev/repo-manifest/internal/service/generator"
)

// Watcher keeps the store in sync with the manifest documents on disk.
// The manifest directory is watched rather than the files themselves so
// atomic replacement by the generator is picked up as well.
type Watcher struct {
	dir     string
	store   *Store
	watcher *fsnotify.Watcher
}

// NewWatcher sets up a directory watch over the manifest directory.
func NewWatcher(dir string, store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err = fw.Add(dir); err != nil {
		fw.Close()

		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		store:   store,
		watcher: fw,
	}, nil
}

// Close releases the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// LoadAll loads both manifests once. Failures are logged and leave the
// current indexes untouched, so the service keeps serving stale data.
func (w *Watcher) LoadAll(ctx context.Context) {
	w.loadRecipe(ctx)
	w.loadImages(ctx)
}

// Run processes filesystem events until the context is canceled or the
// watch is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			switch filepath.Base(event.Name) {
			case generator.RecipeFilename:
				w.loadRecipe(ctx)
			case generator.LivekitFilename:
				w.loadImages(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			logger.ErrorKV(ctx, "Manifest watch error", "error", err)
		}
	}
}

func (w *Watcher) loadRecipe(ctx context.Context) {
	path := filepath.Join(w.dir, generator.RecipeFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.ErrorKV(ctx, "Could not read the recipe manifest", "path", path, "error", err)

		return
	}

	recipe, err := manifest.DecodeRecipe(data)
	if err != nil {
		logger.ErrorKV(ctx, "Could not parse the recipe manifest", "path", path, "error", err)

		return
	}

	index := IndexRecipe(recipe)
	w.store.SetReleases(index)

	logger.InfoKV(ctx, "Reloaded recipe manifest", "options", len(index))
}

func (w *Watcher) loadImages(ctx context.Context) {
	path := filepath.Join(w.dir, generator.LivekitFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.ErrorKV(ctx, "Could not read the livekit manifest", "path", path, "error", err)

		return
	}

	tarballs, err := manifest.DecodeTarballList(data)
	if err != nil {
		logger.ErrorKV(ctx, "Could not parse the livekit manifest", "path", path, "error", err)

		return
	}

	index := IndexImages(tarballs)
	w.store.SetImages(index)

	logger.InfoKV(ctx, "Reloaded livekit manifest", "options", len(index))
}
