package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aosc-dev/repo-manifest/internal/catalog"
	"github.com/aosc-dev/repo-manifest/internal/logger"
)

// RecipeVersion is the schema version of generated recipe documents.
const RecipeVersion = 1

// MediaType distinguishes the two root filesystem formats a release ships in.
type MediaType int

const (
	// MediaTarball is a compressed tar archive.
	MediaTarball MediaType = iota
	// MediaSquashFS is a squashfs image.
	MediaSquashFS
)

// Tarball describes one built release medium.
// Variant and Media are bookkeeping used during assembly and are not part
// of the serialized document.
type Tarball struct {
	// Arch is the CPU architecture code parsed from the filename.
	Arch string `json:"arch"`
	// Date is the build date parsed from the filename.
	Date string `json:"date"`
	// Variant is the edition identifier the file belongs to.
	Variant string `json:"-"`
	// Media is the root filesystem format of the file.
	Media MediaType `json:"-"`
	// DownloadSize is the on-mirror size in bytes.
	DownloadSize int64 `json:"downloadSize"`
	// InstSize is the estimated installed size in bytes.
	InstSize int64 `json:"instSize"`
	// Path is the file path relative to the release tree root.
	Path string `json:"path"`
	// SHA256Sum is the hex-encoded checksum of the file.
	SHA256Sum string `json:"sha256sum"`
	// Inodes is the inode count for squashfs media, absent otherwise.
	Inodes *uint32 `json:"inodes,omitempty"`
}

// Variant is one edition's worth of release media in the recipe document.
type Variant struct {
	// Name is the display name of the edition.
	Name string `json:"name"`
	// NameKey is the localization key for the name.
	NameKey string `json:"name-tr"`
	// Retro marks editions belonging to the legacy family.
	Retro bool `json:"retro"`
	// Description is the display description of the edition.
	Description string `json:"description"`
	// DescriptionKey is the localization key for the description.
	DescriptionKey string `json:"description-tr"`
	// Tarballs lists tar media for this edition.
	Tarballs []Tarball `json:"tarballs"`
	// SquashFS lists squashfs media for this edition.
	SquashFS []Tarball `json:"squashfs"`
}

// Mirror is the serialized form of a catalog mirror entry.
type Mirror struct {
	// Name is the human-readable mirror name.
	Name string `json:"name"`
	// NameKey is the localization key for the mirror name.
	NameKey string `json:"name-tr"`
	// Location is the human-readable mirror location.
	Location string `json:"loc"`
	// LocationKey is the localization key for the location.
	LocationKey string `json:"loc-tr"`
	// URL is the mirror base URL.
	URL string `json:"url"`
}

// Bulletin is the serialized form of the catalog bulletin.
type Bulletin struct {
	// Type is one of info, warning or critical.
	Type string `json:"type"`
	// Title is the announcement title.
	Title string `json:"title"`
	// TitleKey is the localization key for the title.
	TitleKey string `json:"title-tr"`
	// Body is the announcement text.
	Body string `json:"body"`
	// BodyKey is the localization key for the body.
	BodyKey string `json:"body-tr"`
}

// Recipe is the top-level manifest document describing all release media.
type Recipe struct {
	// Version is the schema version.
	Version int `json:"version"`
	// Bulletin is the current announcement shown by installers.
	Bulletin Bulletin `json:"bulletin"`
	// Variants lists all editions and their media.
	Variants []Variant `json:"variants"`
	// Mirrors lists download mirrors in catalog order.
	Mirrors []Mirror `json:"mirrors"`
}

// AssembleVariants groups scanned tarballs into per-edition variants using
// the catalog's edition metadata. Files whose variant is not declared in the
// catalog are skipped with a warning. Variants come back sorted by
// localization key for deterministic output.
func AssembleVariants(ctx context.Context, c *catalog.ReleaseCatalog, files []Tarball) []Variant {
	variants := make(map[string]*Variant)

	add := func(familyName string) {
		family, ok := c.Family(familyName)
		if !ok {
			return
		}

		retro := familyName == catalog.FamilyRetro

		for id, edition := range family.Editions {
			variants[familyName+"/"+id] = &Variant{
				Name:           edition.Name,
				NameKey:        edition.NameKey,
				Retro:          retro,
				Description:    edition.Description,
				DescriptionKey: edition.DescriptionKey,
				Tarballs:       []Tarball{},
				SquashFS:       []Tarball{},
			}
		}
	}

	add(catalog.FamilyMainline)
	add(catalog.FamilyRetro)

	for _, file := range files {
		familyName := catalog.FamilyMainline
		if c.IsRetroArch(file.Arch) {
			familyName = catalog.FamilyRetro
		}

		variant, ok := variants[familyName+"/"+file.Variant]
		if !ok {
			logger.WarnKV(ctx, "Variant is not in the release config",
				"variant", file.Variant, "family", familyName, "path", file.Path)

			continue
		}

		switch file.Media {
		case MediaSquashFS:
			variant.SquashFS = append(variant.SquashFS, file)
		case MediaTarball:
			variant.Tarballs = append(variant.Tarballs, file)
		}
	}

	results := make([]Variant, 0, len(variants))
	for _, variant := range variants {
		results = append(results, *variant)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].NameKey < results[j].NameKey
	})

	return results
}

// AssembleRecipe composes the final recipe document from the catalog and the
// assembled variants.
func AssembleRecipe(c *catalog.ReleaseCatalog, variants []Variant) *Recipe {
	recipe := &Recipe{
		Version:  RecipeVersion,
		Variants: variants,
	}

	if b := c.Bulletin(); b != nil {
		recipe.Bulletin = Bulletin{
			Type:     string(b.Type),
			Title:    b.Title,
			TitleKey: b.TitleKey,
			Body:     b.Body,
			BodyKey:  b.BodyKey,
		}
	}

	for _, m := range c.Mirrors() {
		recipe.Mirrors = append(recipe.Mirrors, Mirror{
			Name:        m.Name,
			NameKey:     m.NameKey,
			Location:    m.Location,
			LocationKey: m.LocationKey,
			URL:         m.URL,
		})
	}

	return recipe
}

// FlattenVariants collects every tarball and squashfs entry of a recipe into
// a single list, used to seed incremental rescans.
func FlattenVariants(recipe *Recipe) []Tarball {
	var results []Tarball
	for _, variant := range recipe.Variants {
		results = append(results, variant.Tarballs...)
		results = append(results, variant.SquashFS...)
	}

	return results
}

// EncodeRecipe serializes a recipe document to JSON.
func EncodeRecipe(recipe *Recipe) ([]byte, error) {
	data, err := json.Marshal(recipe)
	if err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}

	return data, nil
}

// DecodeRecipe parses a recipe document from JSON.
func DecodeRecipe(data []byte) (*Recipe, error) {
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}

	return &recipe, nil
}

// DecodeTarballList parses a flat tarball list, the format of livekit.json.
func DecodeTarballList(data []byte) ([]Tarball, error) {
	var tarballs []Tarball
	if err := json.Unmarshal(data, &tarballs); err != nil {
		return nil, fmt.Errorf("decode tarball list: %w", err)
	}

	return tarballs, nil
}

// EncodeTarballList serializes a flat tarball list.
func EncodeTarballList(tarballs []Tarball) ([]byte, error) {
	data, err := json.Marshal(tarballs)
	if err != nil {
		return nil, fmt.Errorf("encode tarball list: %w", err)
	}

	return data, nil
}
