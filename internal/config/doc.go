// Package config defines process settings for the repo-redirect service and
// provides helpers to load, validate and save them in YAML format.
package config
