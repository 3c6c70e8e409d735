package repository

import (
	"context"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
)

// TitleDetails is the subset of the metadata service's detail payload the
// resolver needs. Movies carry Title and ReleaseDate; series carry Name.
type TitleDetails struct {
	Title        string
	Name         string
	ReleaseDate  string
	FirstAirDate string
}

// MetadataService looks up canonical title facts by external ID.
// Implementations should be provided by the infrastructure layer (e.g., TMDB).
type MetadataService interface {
	// GetDetails performs exactly one request to the service.
	GetDetails(ctx context.Context, mediaType model.MediaType, externalID string) (*TitleDetails, error)
}
