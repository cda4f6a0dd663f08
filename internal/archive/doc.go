// Package archive computes decompressed sizes of xz and gzip streams. The xz
// fast path walks the stream index backwards instead of decompressing, which
// matters for multi-gigabyte release tarballs.
package archive
