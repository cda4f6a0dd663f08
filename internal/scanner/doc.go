// Package scanner walks the release tree, identifies release media and
// probes each file for its checksum, download size and installed size.
// Rescans are incremental against the previously generated manifest.
package scanner
