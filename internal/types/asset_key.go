// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// AssetKind distinguishes character references from location references.
type AssetKind string

// Asset kinds.
const (
	KindCharacter AssetKind = "character"
	KindLocation  AssetKind = "location"
)

// AssetView distinguishes the primary front reference image from the
// angle image derived from it.
type AssetView string

// Asset views. The angle view is generated by reference to the front
// view, so invalidating front always invalidates angle.
const (
	ViewFront AssetView = "front"
	ViewAngle AssetView = "angle"
)

// AssetKey builds the composite lookup key for a generated reference
// image, e.g. "character:Lily:front".
func AssetKey(kind AssetKind, name string, view AssetView) string {
	return fmt.Sprintf("%s:%s:%s", kind, name, view)
}

// ParseAssetKey splits a composite asset key into its parts. Names may
// themselves contain colons; the kind is everything before the first
// colon and the view everything after the last.
func ParseAssetKey(key string) (AssetKind, string, AssetView, error) {
	first := strings.Index(key, ":")
	last := strings.LastIndex(key, ":")
	if first < 0 || last <= first {
		return "", "", "", fmt.Errorf("invalid asset key %q: want kind:name:view", key)
	}

	kind := AssetKind(key[:first])
	name := key[first+1 : last]
	view := AssetView(key[last+1:])

	if kind != KindCharacter && kind != KindLocation {
		return "", "", "", fmt.Errorf("invalid asset kind %q in key %q", kind, key)
	}
	if name == "" {
		return "", "", "", fmt.Errorf("empty asset name in key %q", key)
	}
	if view != ViewFront && view != ViewAngle {
		return "", "", "", fmt.Errorf("invalid asset view %q in key %q", view, key)
	}

	return kind, name, view, nil
}
