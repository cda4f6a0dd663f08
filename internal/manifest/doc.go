// Package manifest defines the JSON documents the generator emits
// (recipe.json and livekit.json), filename parsing for release media and the
// assembly of scanned files into per-edition variants.
package manifest
