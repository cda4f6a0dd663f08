package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultFilePermissions is the file mode used when saving a catalog.
const DefaultFilePermissions = 0o600

// document mirrors the on-disk TOML layout of the release configuration.
type document struct {
	Config   basicConfig                   `toml:"config"`
	Bulletin *Bulletin                     `toml:"bulletin,omitempty"`
	Mirrors  []MirrorEntry                 `toml:"mirrors"`
	Distro   map[string]map[string]Edition `toml:"distro"`
}

// basicConfig is the [config] section.
type basicConfig struct {
	// Path is the root of the release tree.
	Path string `toml:"path"`
	// RetroArches lists architectures served by the retro family.
	// An empty list is valid and means no legacy targets.
	RetroArches []string `toml:"retro_arches"`
}

// Load reads and validates the release configuration at the given path.
// Any validation failure fails the whole load; a partial catalog is never
// returned, since silently dropping a mirror or edition would produce
// misleading release metadata.
func Load(path string) (*ReleaseCatalog, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read release config: %w", err)
	}

	return Parse(contents)
}

// Parse validates raw TOML configuration data and builds a catalog from it.
func Parse(data []byte) (*ReleaseCatalog, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		var parseErr toml.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: line %d: %s", ErrParse, parseErr.Position.Line, parseErr.Message)
		}

		return nil, fmt.Errorf("%w: %s", ErrParse, err)
	}

	if doc.Config.Path == "" {
		return nil, ErrMissingPath
	}

	if err := validateRetroArches(doc.Config.RetroArches); err != nil {
		return nil, err
	}

	if err := validateMirrors(doc.Mirrors); err != nil {
		return nil, err
	}

	if doc.Bulletin != nil && !doc.Bulletin.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBulletinType, doc.Bulletin.Type)
	}

	if len(doc.Distro) == 0 {
		return nil, ErrNoFamilies
	}

	families := make(map[string]DistroFamily, len(doc.Distro))

	for name, section := range doc.Distro {
		family, err := NewFamily(name, sectionEditions(section))
		if err != nil {
			return nil, err
		}

		families[name] = family
	}

	return &ReleaseCatalog{
		path: doc.Config.Path,
		// Keep an empty list distinguishable from a missing one.
		retroArches: append([]string{}, doc.Config.RetroArches...),
		bulletin:    doc.Bulletin,
		mirrors:     append([]MirrorEntry{}, doc.Mirrors...),
		families:    families,
	}, nil
}

// NewFamily builds a distribution family from a list of editions, enforcing
// identifier uniqueness and completeness. Localization keys default to
// identifiers derived the same way the manifest generator derives them:
// "<id>-name" and "<id>-description", with a "-retro" infix for the retro
// family.
func NewFamily(name string, editions []Edition) (DistroFamily, error) {
	family := DistroFamily{
		Name:     name,
		Editions: make(map[string]Edition, len(editions)),
	}

	infix := ""
	if name == FamilyRetro {
		infix = "-retro"
	}

	for _, edition := range editions {
		if _, exists := family.Editions[edition.ID]; exists {
			return DistroFamily{}, &DuplicateEditionError{Family: name, ID: edition.ID}
		}

		if edition.Name == "" || edition.Description == "" {
			return DistroFamily{}, &IncompleteEditionError{Family: name, ID: edition.ID}
		}

		if edition.NameKey == "" {
			edition.NameKey = edition.ID + infix + "-name"
		}

		if edition.DescriptionKey == "" {
			edition.DescriptionKey = edition.ID + infix + "-description"
		}

		family.Editions[edition.ID] = edition
	}

	return family, nil
}

// Marshal serializes the catalog back to its TOML representation.
// Reloading the output yields an equivalent catalog.
func (c *ReleaseCatalog) Marshal() ([]byte, error) {
	doc := document{
		Config: basicConfig{
			Path:        c.path,
			RetroArches: c.retroArches,
		},
		Bulletin: c.bulletin,
		Mirrors:  c.mirrors,
		Distro:   make(map[string]map[string]Edition, len(c.families)),
	}

	for name, family := range c.families {
		section := make(map[string]Edition, len(family.Editions))
		for id, edition := range family.Editions {
			section[id] = edition
		}

		doc.Distro[name] = section
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode release config: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes the catalog to the provided path in TOML format.
func (c *ReleaseCatalog) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write release config: %w", err)
	}

	return nil
}

// validateRetroArches checks that architecture codes are distinct.
func validateRetroArches(arches []string) error {
	seen := make(map[string]struct{}, len(arches))
	for _, arch := range arches {
		if _, exists := seen[arch]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateRetroArch, arch)
		}

		seen[arch] = struct{}{}
	}

	return nil
}

// validateMirrors checks required fields and URL shape for every mirror.
func validateMirrors(mirrors []MirrorEntry) error {
	for i, mirror := range mirrors {
		if mirror.Name == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrMalformedMirror, i)
		}

		if mirror.URL == "" {
			return fmt.Errorf("%w: %q has no url", ErrMalformedMirror, mirror.Name)
		}

		parsed, err := url.Parse(mirror.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: %q has invalid url %q", ErrMalformedMirror, mirror.Name, mirror.URL)
		}
	}

	return nil
}

// sectionEditions converts a parsed [distro.<family>] section into an
// edition list with identifiers attached, in deterministic order.
func sectionEditions(section map[string]Edition) []Edition {
	ids := make([]string, 0, len(section))
	for id := range section {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	editions := make([]Edition, 0, len(section))

	for _, id := range ids {
		edition := section[id]
		edition.ID = id
		editions = append(editions, edition)
	}

	return editions
}
