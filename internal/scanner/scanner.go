package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aosc-dev/repo-manifest/internal/archive"
	"github.com/aosc-dev/repo-manifest/internal/catalog"
	"github.com/aosc-dev/repo-manifest/internal/logger"
	"github.com/aosc-dev/repo-manifest/internal/manifest"
	"github.com/aosc-dev/repo-manifest/internal/sqfs"
)

// squashfsMagic opens every squashfs image.
var squashfsMagic = [4]byte{'h', 's', 'q', 's'}

// Config tunes how the release tree is probed.
type Config struct {
	// FastXz selects the index-based xz size probe over full decompression.
	FastXz bool
	// Workers caps concurrent file probes. Zero means one per CPU.
	Workers int
}

// Scanner walks a release tree and produces tarball records for the
// manifest generator.
type Scanner struct {
	// root is the release tree root.
	root string
	// cfg holds probe settings.
	cfg Config
}

// New creates a scanner rooted at the given release tree.
func New(root string, cfg Config) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return &Scanner{
		root: filepath.Clean(root),
		cfg:  cfg,
	}
}

// CollectInstallMedia walks the tree collecting tarballs (by the .tar.xz
// suffix) and squashfs images (by their magic). Unreadable entries are logged
// and skipped.
func (s *Scanner) CollectInstallMedia(ctx context.Context) ([]string, error) {
	return s.collect(ctx, func(path string, entry fs.DirEntry) bool {
		if strings.HasSuffix(entry.Name(), ".tar.xz") {
			return true
		}

		return isSquashfsFile(path)
	})
}

// CollectImages walks the tree collecting live images by the .iso suffix.
func (s *Scanner) CollectImages(ctx context.Context) ([]string, error) {
	return s.collect(ctx, func(_ string, entry fs.DirEntry) bool {
		return strings.HasSuffix(entry.Name(), ".iso")
	})
}

// collect walks the release tree and returns absolute paths of entries
// accepted by the filter.
func (s *Scanner) collect(ctx context.Context, filter func(string, fs.DirEntry) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.ErrorKV(ctx, "Could not read tree entry", "path", path, "error", walkErr)

			return nil
		}

		if entry.IsDir() || !filter(path, entry) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}

		files = append(files, abs)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk release tree: %w", err)
	}

	return files, nil
}

// Filter drops files whose variant or architecture is not declared in the
// catalog. Retro architectures resolve against the retro family, everything
// else against mainline.
func (s *Scanner) Filter(ctx context.Context, files []string, c *catalog.ReleaseCatalog) []string {
	filtered := make([]string, 0, len(files))

	for _, file := range files {
		parts, ok := manifest.SplitFileName(filepath.Base(file))
		if !ok {
			continue
		}

		familyName := catalog.FamilyMainline
		if c.IsRetroArch(parts.Arch) {
			familyName = catalog.FamilyRetro
		}

		if _, ok := c.ResolveEdition(familyName, parts.Variant); ok {
			filtered = append(filtered, file)
		} else {
			logger.WarnKV(ctx, "Variant is not in the release config",
				"variant", parts.Variant, "family", familyName)
		}
	}

	return filtered
}

// Scan probes the given files concurrently. With raw set, the installed size
// is simply the file size (used for live images). Files that cannot be
// probed are logged and skipped rather than failing the whole scan.
func (s *Scanner) Scan(ctx context.Context, files []string, raw bool) ([]manifest.Tarball, error) {
	var (
		mu      sync.Mutex
		results []manifest.Tarball
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)

	for _, file := range files {
		file := file
		group.Go(func() error {
			logger.InfoKV(ctx, "Scanning medium", "path", file)

			tarball, err := s.probe(file, raw)
			if err != nil {
				logger.ErrorKV(ctx, "Could not probe medium", "path", file, "error", err)

				return nil
			}

			mu.Lock()
			results = append(results, *tarball)
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Incremental reuses entries from a previous manifest whose files are still
// present and probes only the new files.
func (s *Scanner) Incremental(
	ctx context.Context,
	files []string,
	existing []manifest.Tarball,
	raw bool,
) ([]manifest.Tarball, error) {
	present := make(map[string]struct{}, len(files))
	for _, file := range files {
		present[file] = struct{}{}
	}

	kept := make([]manifest.Tarball, 0, len(existing))
	keptPaths := make(map[string]struct{}, len(existing))

	for _, tarball := range existing {
		abs := filepath.Join(s.root, tarball.Path)
		if _, ok := present[abs]; !ok {
			continue
		}

		parts, ok := manifest.SplitFileName(filepath.Base(tarball.Path))
		if !ok {
			logger.WarnKV(ctx, "Unable to determine the variant", "path", tarball.Path)

			continue
		}

		media, ok := manifest.MediaTypeForExt(parts.Ext)
		if !ok {
			logger.WarnKV(ctx, "Unknown file type", "ext", parts.Ext, "path", tarball.Path)

			continue
		}

		tarball.Variant = parts.Variant
		tarball.Media = media
		kept = append(kept, tarball)
		keptPaths[abs] = struct{}{}
	}

	newFiles := make([]string, 0, len(files))

	for _, file := range files {
		if _, ok := keptPaths[file]; !ok {
			newFiles = append(newFiles, file)
		}
	}

	logger.InfoKV(ctx, "Incrementally scanning mediums", "count", len(newFiles))

	scanned, err := s.Scan(ctx, newFiles, raw)
	if err != nil {
		return nil, err
	}

	return append(kept, scanned...), nil
}

// SmartScan filters the files against the catalog and rescans incrementally
// against the previous recipe document, falling back to a full scan when the
// previous manifest cannot be decoded.
func (s *Scanner) SmartScan(
	ctx context.Context,
	previous []byte,
	c *catalog.ReleaseCatalog,
	files []string,
) ([]manifest.Tarball, error) {
	files = s.Filter(ctx, files, c)

	recipe, err := manifest.DecodeRecipe(previous)
	if err != nil {
		logger.WarnKV(ctx, "Failed to read the previous manifest, falling back to full scan", "error", err)
		logger.InfoKV(ctx, "Scanning mediums", "count", len(files))

		return s.Scan(ctx, files, false)
	}

	return s.Incremental(ctx, files, manifest.FlattenVariants(recipe), false)
}

// probe gathers checksum, sizes and identity for one file.
func (s *Scanner) probe(path string, raw bool) (*manifest.Tarball, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, fmt.Errorf("relative path: %w", err)
	}

	parts, ok := manifest.SplitFileName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("unrecognized filename %q", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Best-effort cleanup, file is read-only.
	defer func() {
		_ = f.Close()
	}()

	var magic [4]byte
	if _, err = io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}

	isSquashfs := magic == squashfsMagic

	var (
		instSize uint64
		inodes   *uint32
	)

	switch {
	case raw:
		size, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("measure size: %w", err)
		}

		instSize = uint64(size)
	case isSquashfs:
		size, count, err := sqfs.SizeAndInodes(path)
		if err != nil {
			return nil, err
		}

		instSize = size
		inodes = &count
	default:
		instSize, err = s.xzSize(f)
		if err != nil {
			return nil, err
		}
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	checksum, err := sha256sum(f)
	if err != nil {
		return nil, err
	}

	media := manifest.MediaTarball
	if isSquashfs {
		media = manifest.MediaSquashFS
	}

	return &manifest.Tarball{
		Arch:         parts.Arch,
		Date:         parts.Date,
		Variant:      parts.Variant,
		Media:        media,
		DownloadSize: info.Size(),
		InstSize:     int64(instSize),
		Path:         filepath.ToSlash(rel),
		SHA256Sum:    checksum,
		Inodes:       inodes,
	}, nil
}

// xzSize measures the decompressed size of an open xz stream.
func (s *Scanner) xzSize(f *os.File) (uint64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind: %w", err)
	}

	if s.cfg.FastXz {
		return archive.XzDecompressedSizeFromIndex(f)
	}

	return archive.XzDecompressedSize(f)
}

// sha256sum computes the hex-encoded checksum of the given stream.
func sha256sum(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// isSquashfsFile reports whether the file at path starts with the squashfs magic.
func isSquashfsFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}

	// Best-effort cleanup, file is read-only.
	defer func() {
		_ = f.Close()
	}()

	var magic [4]byte
	if _, err = io.ReadFull(f, magic[:]); err != nil {
		return false
	}

	return magic == squashfsMagic
}
