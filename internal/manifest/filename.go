package manifest

import "strings"

// FileNameParts holds the fields encoded in a release medium filename.
//
// Release filenames follow the pattern:
//
//	aosc-os_<variant>_<date>_<arch>.<ext>
//	aosc-os_base_20200526_amd64.tar.xz
type FileNameParts struct {
	// Arch is the CPU architecture code.
	Arch string
	// Date is the build date.
	Date string
	// Variant is the edition identifier.
	Variant string
	// Ext is everything after the first dot of the last segment (e.g. "tar.xz").
	Ext string
}

// SplitFileName extracts the variant, date, architecture and extension from a
// release medium filename. It reports false for names that do not follow the
// expected pattern.
func SplitFileName(name string) (FileNameParts, bool) {
	fields := strings.SplitN(name, "_", 4)
	if len(fields) != 4 {
		return FileNameParts{}, false
	}

	arch, ext, ok := strings.Cut(fields[3], ".")
	if !ok {
		return FileNameParts{}, false
	}

	return FileNameParts{
		Arch:    arch,
		Date:    fields[2],
		Variant: fields[1],
		Ext:     ext,
	}, true
}

// MediaTypeForExt maps a filename extension to the root filesystem format.
// It reports false for extensions that are not release media.
func MediaTypeForExt(ext string) (MediaType, bool) {
	switch {
	case ext == "iso" || ext == "img":
		return MediaTarball, true
	case strings.HasPrefix(ext, "tar."):
		return MediaTarball, true
	case ext == "squashfs" || ext == "sfs":
		return MediaSquashFS, true
	default:
		return 0, false
	}
}
