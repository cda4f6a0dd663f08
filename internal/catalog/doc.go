// Package catalog models the release configuration (releases.toml): mirror
// registry, optional bulletin, per-family edition catalogs and the release
// tree path. A catalog is loaded and validated once, is immutable afterwards
// and may be shared read-only across concurrent manifest generation tasks.
package catalog
