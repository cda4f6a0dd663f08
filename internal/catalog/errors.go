package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPath is returned when the required config path field is absent.
	ErrMissingPath = errors.New("config section has no path")
	// ErrMalformedMirror is returned when a mirror entry misses a required
	// field or its URL fails syntactic validation.
	ErrMalformedMirror = errors.New("malformed mirror entry")
	// ErrInvalidBulletinType is returned when the bulletin type is outside
	// the recognized set.
	ErrInvalidBulletinType = errors.New("invalid bulletin type")
	// ErrDuplicateRetroArch is returned when the retro architecture list
	// contains the same code twice.
	ErrDuplicateRetroArch = errors.New("duplicate retro architecture")
	// ErrNoFamilies is returned when the configuration declares no
	// distribution family at all.
	ErrNoFamilies = errors.New("no distribution family configured")
	// ErrParse is returned when the configuration is not valid TOML.
	ErrParse = errors.New("config parse failure")
)

// DuplicateEditionError reports an edition identifier declared twice
// within one family. Identifiers are namespaced per family, so the same
// identifier in different families is fine.
type DuplicateEditionError struct {
	// Family is the family in which the duplicate was found.
	Family string
	// ID is the duplicated edition identifier.
	ID string
}

// Error implements the error interface.
func (e *DuplicateEditionError) Error() string {
	return fmt.Sprintf("duplicate edition %q in family %q", e.ID, e.Family)
}

// IncompleteEditionError reports an edition missing its name or description.
type IncompleteEditionError struct {
	// Family is the family of the incomplete edition.
	Family string
	// ID is the edition identifier.
	ID string
}

// Error implements the error interface.
func (e *IncompleteEditionError) Error() string {
	return fmt.Sprintf("edition %q in family %q has no name or description", e.ID, e.Family)
}
