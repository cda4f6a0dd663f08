package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleConfig is a minimal valid release configuration.
const sampleConfig = `
[config]
path = "/mirror/aosc-os"
retro_arches = ["alpha"]

[bulletin]
type = "info"
title = "Greetings"
title-tr = "bulletin-title"
body = "Hello there"
body-tr = "bulletin-body"

[[mirrors]]
name = "Test Mirror"
name-tr = "test-mirror-name"
url = "https://example.com/"
loc = "Somewhere"
loc-tr = "test-mirror-loc"

[distro.mainline.base]
name = "Base"
name-tr = "base-name"
description = "Base edition"
description-tr = "base-description"
`

// TestParseExample validates the reference configuration from end to end.
func TestParseExample(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "/mirror/aosc-os", c.Path())
	require.Equal(t, []string{"alpha"}, c.RetroArches())
	require.True(t, c.IsRetroArch("alpha"))
	require.False(t, c.IsRetroArch("amd64"))

	mirrors := c.Mirrors()
	require.Len(t, mirrors, 1)
	require.Equal(t, "https://example.com/", mirrors[0].URL)

	edition, ok := c.ResolveEdition("mainline", "base")
	require.True(t, ok)
	require.Equal(t, "Base", edition.Name)

	bulletin := c.Bulletin()
	require.NotNil(t, bulletin)
	require.Equal(t, BulletinInfo, bulletin.Type)
}

// TestMirrorOrderPreserved checks that mirrors come back in declaration order.
func TestMirrorOrderPreserved(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = []

[[mirrors]]
name = "Third"
url = "https://c.example.com/"

[[mirrors]]
name = "First"
url = "https://a.example.com/"

[[mirrors]]
name = "Second"
url = "https://b.example.com/"

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

	c, err := Parse([]byte(cfg))
	require.NoError(t, err)

	var names []string
	for _, m := range c.Mirrors() {
		names = append(names, m.Name)
	}

	require.Equal(t, []string{"Third", "First", "Second"}, names)
}

// TestMissingPath ensures a catalog without a path fails the whole load.
func TestMissingPath(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
retro_arches = []

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

	c, err := Parse([]byte(cfg))
	require.ErrorIs(t, err, ErrMissingPath)
	require.Nil(t, c)
}

// TestEmptyRetroArches verifies that no legacy targets is a valid setup.
func TestEmptyRetroArches(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = []

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

	c, err := Parse([]byte(cfg))
	require.NoError(t, err)
	require.NotNil(t, c.RetroArches())
	require.Empty(t, c.RetroArches())
}

// TestDuplicateRetroArches ensures repeated architecture codes are rejected.
func TestDuplicateRetroArches(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = ["i486", "i486"]

[distro.retro.base]
name = "Base"
description = "Base edition"
`

	_, err := Parse([]byte(cfg))
	require.ErrorIs(t, err, ErrDuplicateRetroArch)
}

// TestMalformedMirrors covers missing fields and URLs without scheme or host.
func TestMalformedMirrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no name":   `name = ""` + "\n" + `url = "https://example.com/"`,
		"no url":    `name = "M"` + "\n" + `url = ""`,
		"no scheme": `name = "M"` + "\n" + `url = "example.com/path"`,
		"no host":   `name = "M"` + "\n" + `url = "https://"`,
	}

	for label, mirror := range cases {
		cfg := `
[config]
path = "/mirror"
retro_arches = []

[[mirrors]]
` + mirror + `

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

		_, err := Parse([]byte(cfg))
		require.ErrorIs(t, err, ErrMalformedMirror, label)
	}
}

// TestInvalidBulletinType rejects types outside the recognized set but
// accepts a configuration without a bulletin at all.
func TestInvalidBulletinType(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = []

[bulletin]
type = "party"
title = "T"
body = "B"

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

	_, err := Parse([]byte(cfg))
	require.ErrorIs(t, err, ErrInvalidBulletinType)

	noBulletin := `
[config]
path = "/mirror"
retro_arches = []

[distro.mainline.base]
name = "Base"
description = "Base edition"
`

	c, err := Parse([]byte(noBulletin))
	require.NoError(t, err)
	require.Nil(t, c.Bulletin())
}

// TestIncompleteEdition ensures editions without a name or description fail.
func TestIncompleteEdition(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = []

[distro.mainline.base]
name = "Base"
description = ""
`

	_, err := Parse([]byte(cfg))

	var incomplete *IncompleteEditionError

	require.ErrorAs(t, err, &incomplete)
	require.Equal(t, "mainline", incomplete.Family)
	require.Equal(t, "base", incomplete.ID)
}

// TestNewFamilyDuplicates enforces per-family identifier uniqueness while
// allowing the same identifier across families.
func TestNewFamilyDuplicates(t *testing.T) {
	t.Parallel()

	editions := []Edition{
		{ID: "base", Name: "Base", Description: "Base edition"},
		{ID: "base", Name: "Base again", Description: "Duplicate"},
	}

	_, err := NewFamily(FamilyMainline, editions)

	var duplicate *DuplicateEditionError

	require.ErrorAs(t, err, &duplicate)
	require.Equal(t, "base", duplicate.ID)

	// Same identifier in two different families is fine.
	cfg := `
[config]
path = "/mirror"
retro_arches = ["i486"]

[distro.mainline.base]
name = "Base"
description = "Base edition"

[distro.retro.base]
name = "Base (Retro)"
description = "Base edition for legacy machines"
`

	c, err := Parse([]byte(cfg))
	require.NoError(t, err)

	mainline, ok := c.ResolveEdition("mainline", "base")
	require.True(t, ok)
	retro, ok := c.ResolveEdition("retro", "base")
	require.True(t, ok)
	require.NotEqual(t, mainline.Name, retro.Name)
}

// TestDerivedLocalizationKeys checks key derivation with the retro infix.
func TestDerivedLocalizationKeys(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = ["i486"]

[distro.mainline.base]
name = "Base"
description = "Base edition"

[distro.retro.base]
name = "Base (Retro)"
description = "Base edition for legacy machines"
`

	c, err := Parse([]byte(cfg))
	require.NoError(t, err)

	mainline, ok := c.ResolveEdition("mainline", "base")
	require.True(t, ok)
	require.Equal(t, "base-name", mainline.NameKey)
	require.Equal(t, "base-description", mainline.DescriptionKey)

	retro, ok := c.ResolveEdition("retro", "base")
	require.True(t, ok)
	require.Equal(t, "base-retro-name", retro.NameKey)
	require.Equal(t, "base-retro-description", retro.DescriptionKey)
}

// TestResolveUnknownEdition never fails, it just reports absence.
func TestResolveUnknownEdition(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	_, ok := c.ResolveEdition("mainline", "nonexistent")
	require.False(t, ok)

	_, ok = c.ResolveEdition("nonexistent", "base")
	require.False(t, ok)
}

// TestParseFailure surfaces TOML syntax errors as ErrParse.
func TestParseFailure(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("[config\npath = 1"))
	require.ErrorIs(t, err, ErrParse)
}

// TestNoFamilies rejects a configuration without any distro section.
func TestNoFamilies(t *testing.T) {
	t.Parallel()

	cfg := `
[config]
path = "/mirror"
retro_arches = []
`

	_, err := Parse([]byte(cfg))
	require.ErrorIs(t, err, ErrNoFamilies)
}

// TestSaveLoadRoundtrip ensures a saved catalog reloads field-for-field.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	original, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "releases.toml")
	require.NoError(t, original.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, original.Path(), reloaded.Path())
	require.Equal(t, original.RetroArches(), reloaded.RetroArches())
	require.Equal(t, original.Mirrors(), reloaded.Mirrors())
	require.Equal(t, original.Bulletin(), reloaded.Bulletin())
	require.Equal(t, original.FamilyNames(), reloaded.FamilyNames())

	for _, name := range original.FamilyNames() {
		want, _ := original.Family(name)
		got, _ := reloaded.Family(name)
		require.Equal(t, want.Editions, got.Editions)
	}
}

// TestLoadMissingFile wraps the underlying read error.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrParse))
}
