package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSplitFileName checks field extraction for tarball and squashfs names.
func TestSplitFileName(t *testing.T) {
	t.Parallel()

	parts, ok := SplitFileName("aosc-os_base_20200526_amd64.tar.xz")
	require.True(t, ok)
	require.Equal(t, FileNameParts{
		Arch:    "amd64",
		Date:    "20200526",
		Variant: "base",
		Ext:     "tar.xz",
	}, parts)

	parts, ok = SplitFileName("aosc-os_server_20230714_loongarch64.squashfs")
	require.True(t, ok)
	require.Equal(t, FileNameParts{
		Arch:    "loongarch64",
		Date:    "20230714",
		Variant: "server",
		Ext:     "squashfs",
	}, parts)
}

// TestSplitFileNameRejects covers names that do not follow the pattern.
func TestSplitFileNameRejects(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		"",
		"aosc-os.tar.xz",
		"aosc-os_base_20200526",
		"aosc-os_base_20200526_amd64",
	} {
		_, ok := SplitFileName(name)
		require.False(t, ok, name)
	}
}

// TestMediaTypeForExt maps extensions onto media formats.
func TestMediaTypeForExt(t *testing.T) {
	t.Parallel()

	cases := map[string]MediaType{
		"tar.xz":   MediaTarball,
		"tar.gz":   MediaTarball,
		"iso":      MediaTarball,
		"img":      MediaTarball,
		"squashfs": MediaSquashFS,
		"sfs":      MediaSquashFS,
	}
	for ext, want := range cases {
		got, ok := MediaTypeForExt(ext)
		require.True(t, ok, ext)
		require.Equal(t, want, got, ext)
	}

	_, ok := MediaTypeForExt("txt")
	require.False(t, ok)
}
