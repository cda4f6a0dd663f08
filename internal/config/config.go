package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds settings for the repo-redirect service.
type Config struct {
	// ListenAddress is the HTTP listen address (host:port or :port).
	ListenAddress string `yaml:"listen_addr"`
	// ManifestDir is the directory holding recipe.json and livekit.json.
	ManifestDir string `yaml:"manifest_dir"`
	// ReleasesBaseURL is prepended to tarball paths in generated links.
	ReleasesBaseURL string `yaml:"releases_base_url"`
	// DownloadsPageURL receives GET requests that carry no variant selection.
	DownloadsPageURL string `yaml:"downloads_page_url"`
}

const (
	// DefaultConfigFilename is the default filename for redirect settings.
	DefaultConfigFilename = "repo-redirect-settings.yaml"

	// DefaultReleasesBaseURL is the canonical release mirror.
	DefaultReleasesBaseURL = "https://releases.aosc.io/"

	// DefaultDownloadsPageURL is the fallback landing page.
	DefaultDownloadsPageURL = "https://aosc.io/downloads/"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errListenAddressRequired is returned when the listen address is missing.
	errListenAddressRequired = errors.New("listen address must be provided")
	// errManifestDirRequired is returned when the manifest directory is missing.
	errManifestDirRequired = errors.New("manifest directory must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg.ListenAddress == "" {
		return errListenAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.ManifestDir == "" {
		return errManifestDirRequired
	}

	// Fill URL defaults if not specified.
	if cfg.ReleasesBaseURL == "" {
		cfg.ReleasesBaseURL = DefaultReleasesBaseURL
	}

	if cfg.DownloadsPageURL == "" {
		cfg.DownloadsPageURL = DefaultDownloadsPageURL
	}

	for _, u := range []string{cfg.ReleasesBaseURL, cfg.DownloadsPageURL} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid URL %q: %w", u, err)
		}
	}

	return nil
}
