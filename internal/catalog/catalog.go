package catalog

import "sort"

// BulletinType classifies a release bulletin.
type BulletinType string

// Recognized bulletin types.
const (
	BulletinInfo     BulletinType = "info"
	BulletinWarning  BulletinType = "warning"
	BulletinCritical BulletinType = "critical"
)

// Valid reports whether the bulletin type belongs to the recognized set.
func (t BulletinType) Valid() bool {
	switch t {
	case BulletinInfo, BulletinWarning, BulletinCritical:
		return true
	default:
		return false
	}
}

// MirrorEntry describes a single download mirror.
// Declaration order in the configuration file is meaningful: it is the
// display order in the generated manifest.
type MirrorEntry struct {
	// Name is the human-readable mirror name.
	Name string `toml:"name"`
	// NameKey is the localization key for the mirror name.
	NameKey string `toml:"name-tr"`
	// URL is the mirror base URL.
	URL string `toml:"url"`
	// Location is the human-readable mirror location.
	Location string `toml:"loc"`
	// LocationKey is the localization key for the mirror location.
	LocationKey string `toml:"loc-tr"`
}

// Bulletin is a single announcement surfaced to users during installation.
type Bulletin struct {
	// Type is one of info, warning or critical.
	Type BulletinType `toml:"type"`
	// Title is the announcement title.
	Title string `toml:"title"`
	// TitleKey is the localization key for the title.
	TitleKey string `toml:"title-tr"`
	// Body is the announcement text.
	Body string `toml:"body"`
	// BodyKey is the localization key for the body.
	BodyKey string `toml:"body-tr"`
}

// Edition is a named product variant within a distribution family.
type Edition struct {
	// ID is the edition identifier, unique within its family.
	ID string `toml:"-"`
	// Name is the display name of the edition.
	Name string `toml:"name"`
	// NameKey is the localization key for the name.
	NameKey string `toml:"name-tr"`
	// Description is the display description of the edition.
	Description string `toml:"description"`
	// DescriptionKey is the localization key for the description.
	DescriptionKey string `toml:"description-tr"`
}

// DistroFamily groups editions under one distribution family
// ("mainline" or "retro").
type DistroFamily struct {
	// Name is the family name.
	Name string
	// Editions maps edition identifiers to their metadata.
	Editions map[string]Edition
}

// FamilyRetro is the family holding legacy-architecture editions.
const FamilyRetro = "retro"

// FamilyMainline is the family holding current-architecture editions.
const FamilyMainline = "mainline"

// ReleaseCatalog aggregates everything the manifest generator needs:
// the release tree path, the retro architecture list, the optional
// bulletin, the ordered mirror list and the per-family edition catalogs.
//
// A catalog is immutable after Load and may be shared by any number of
// concurrent readers without locking.
type ReleaseCatalog struct {
	// path is the root of the release tree.
	path string
	// retroArches lists architecture codes belonging to the retro family.
	retroArches []string
	// bulletin is nil when the configuration has no bulletin section.
	bulletin *Bulletin
	// mirrors preserves declaration order.
	mirrors []MirrorEntry
	// families maps family name to its edition catalog.
	families map[string]DistroFamily
}

// Path returns the root of the release tree.
func (c *ReleaseCatalog) Path() string {
	return c.path
}

// RetroArches returns a copy of the retro architecture codes.
// The slice is empty, not nil, when no legacy targets are configured.
func (c *ReleaseCatalog) RetroArches() []string {
	out := make([]string, len(c.retroArches))
	copy(out, c.retroArches)

	return out
}

// IsRetroArch reports whether the given architecture belongs to the retro family.
func (c *ReleaseCatalog) IsRetroArch(arch string) bool {
	for _, a := range c.retroArches {
		if a == arch {
			return true
		}
	}

	return false
}

// Mirrors returns the mirror entries in declaration order.
func (c *ReleaseCatalog) Mirrors() []MirrorEntry {
	out := make([]MirrorEntry, len(c.mirrors))
	copy(out, c.mirrors)

	return out
}

// Bulletin returns the bulletin, or nil when the configuration has none.
func (c *ReleaseCatalog) Bulletin() *Bulletin {
	if c.bulletin == nil {
		return nil
	}

	cloned := *c.bulletin

	return &cloned
}

// Family returns the edition catalog of the named family.
func (c *ReleaseCatalog) Family(name string) (DistroFamily, bool) {
	family, ok := c.families[name]

	return family, ok
}

// FamilyNames returns the names of all configured families, sorted.
func (c *ReleaseCatalog) FamilyNames() []string {
	names := make([]string, 0, len(c.families))
	for name := range c.families {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ResolveEdition looks up an edition by family and identifier.
// An unknown pair yields ok == false, never an error.
func (c *ReleaseCatalog) ResolveEdition(family, id string) (*Edition, bool) {
	f, ok := c.families[family]
	if !ok {
		return nil, false
	}

	edition, ok := f.Editions[id]
	if !ok {
		return nil, false
	}

	return &edition, true
}
