// Package constants holds the shared vocabulary of the catalog: link
// relations, media types, rights URIs, identifier types, data sources,
// contributor roles, mediums and the sentinel values used by ingesters.
package constants

import "time"

// Timeouts and limits.
const (
	// DefaultHTTPTimeout bounds a single content fetch.
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 10 * time.Minute

	// DefaultEquivalentLevels is how many hops cover lookups follow.
	DefaultEquivalentLevels = 5

	// DefaultEquivalentThreshold is the minimum strength for an equivalency to be followed.
	DefaultEquivalentThreshold = 0.5
)

// File permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x).
	DirPermissions = 0o755

	// FilePermissions is the default permission for created files (rw-r--r--).
	FilePermissions = 0o644
)

// Sentinels written by ingesters to mean "explicitly unknown". They clear a
// field rather than being stored literally.
const (
	NoValue  = "NONE"
	NoNumber = -1
)

// UnknownAuthor is the placeholder author for editions with no usable contributors.
const UnknownAuthor = "[Unknown]"

// Thumbnail dimensions.
const (
	MaxThumbnailHeight         = 300
	MaxThumbnailWidth          = 200
	MaxFallbackThumbnailHeight = 500
)

// Heuristic equivalency strengths.
const (
	PermanentWorkIDEquivalencyStrength = 0.85
)

// License pool match confidences, strongest first.
const (
	ConfidencePermanentWorkID = 0.95
	ConfidenceSortAuthor      = 0.9
	ConfidenceDisplayAuthor   = 0.8
	ConfidenceUnknownAuthor   = 0.45
	ConfidenceTitleOnly       = 0.3
)
