// Package version exposes build metadata (semantic version, commit, build
// time) injected via ldflags, and a helper to attach a `version` subcommand
// to cobra roots.
package version
