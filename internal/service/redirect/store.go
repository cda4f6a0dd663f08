package redirect

import (
	"strings"
	"sync"

	"github.com/aosc-dev/repo-manifest/internal/manifest"
)

// latestAlias is a date placeholder used by symlinked release media.
// Entries carrying it never displace a dated entry.
const latestAlias = "latest"

// Store holds the newest release medium per download option. It is shared
// between the HTTP handlers and the manifest watcher, which replaces whole
// indexes on reload.
type Store struct {
	mu       sync.RWMutex
	releases map[string]manifest.Tarball
	images   map[string]manifest.Tarball
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		releases: make(map[string]manifest.Tarball),
		images:   make(map[string]manifest.Tarball),
	}
}

// SetReleases replaces the system release index.
func (s *Store) SetReleases(index map[string]manifest.Tarball) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releases = index
}

// SetImages replaces the live image index.
func (s *Store) SetImages(index map[string]manifest.Tarball) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = index
}

// Release looks up a system release by "<variant>.<arch>" option key.
func (s *Store) Release(key string) (manifest.Tarball, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tarball, ok := s.releases[key]

	return tarball, ok
}

// Image looks up a live image by architecture.
func (s *Store) Image(arch string) (manifest.Tarball, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tarball, ok := s.images[arch]

	return tarball, ok
}

// IndexRecipe builds the download option index from a recipe document,
// keeping the newest tarball per "<variant>.<arch>" key.
func IndexRecipe(recipe *manifest.Recipe) map[string]manifest.Tarball {
	index := make(map[string]manifest.Tarball)

	for _, variant := range recipe.Variants {
		// The localization key starts with the edition identifier.
		id, _, _ := strings.Cut(variant.DescriptionKey, "-")

		for _, tarball := range variant.Tarballs {
			insertNewest(index, id+"."+tarball.Arch, tarball)
		}
	}

	return index
}

// IndexImages builds the live image index from a flat tarball list, keeping
// the newest image per architecture.
func IndexImages(tarballs []manifest.Tarball) map[string]manifest.Tarball {
	index := make(map[string]manifest.Tarball)

	for _, tarball := range tarballs {
		insertNewest(index, tarball.Arch, tarball)
	}

	return index
}

// insertNewest keeps the entry with the greatest build date for each key.
func insertNewest(index map[string]manifest.Tarball, key string, tarball manifest.Tarball) {
	if existing, ok := index[key]; ok {
		if tarball.Date == latestAlias || tarball.Date < existing.Date {
			return
		}
	}

	index[key] = tarball
}
