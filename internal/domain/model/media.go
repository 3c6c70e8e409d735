package model

import (
	"errors"
	"strings"
)

// MediaType is the kind of title being resolved.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
)

var (
	// ErrInvalidMediaType is returned when a media type string is not recognised.
	ErrInvalidMediaType = errors.New("media type must be movie or series")
	// ErrMissingExternalID is returned when a request names no external ID.
	ErrMissingExternalID = errors.New("external id is required")
	// ErrInvalidEpisode is returned for a negative season or episode number.
	ErrInvalidEpisode = errors.New("season and episode must be non-negative integers")
)

// ParseMediaType accepts "movie", "series" and the metadata service's "tv" alias.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return MediaMovie, nil
	case "series", "tv":
		return MediaSeries, nil
	default:
		return "", ErrInvalidMediaType
	}
}

func (m MediaType) IsValid() bool {
	return m == MediaMovie || m == MediaSeries
}

// TMDBPath returns the path segment the metadata service uses for this type.
func (m MediaType) TMDBPath() string {
	if m == MediaSeries {
		return "tv"
	}
	return "movie"
}

func (m MediaType) String() string {
	return string(m)
}

// MetadataKey identifies a metadata record.
type MetadataKey struct {
	MediaType  MediaType
	ExternalID string
}

// MetadataRecord holds the canonical title facts for an external ID.
// Records are never mutated after they are fetched.
type MetadataRecord struct {
	ExternalID  string
	MediaType   MediaType
	Title       string
	ReleaseYear string // empty when unknown, always empty for series
}

// Key returns the cache identity of the record.
func (r MetadataRecord) Key() MetadataKey {
	return MetadataKey{MediaType: r.MediaType, ExternalID: r.ExternalID}
}

// YearMatching reports whether candidates must also agree on release year.
// Series are matched by title only, as are movies without a known release date.
func (r MetadataRecord) YearMatching() bool {
	return r.MediaType == MediaMovie && r.ReleaseYear != ""
}
