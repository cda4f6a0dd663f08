// Package generator ties the release catalog, tree scanner and manifest
// models together into one generation run producing recipe.json and
// livekit.json under the manifest directory of the release tree.
package generator
