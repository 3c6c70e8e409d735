package repository

import (
	"context"
	"encoding/json"
)

// CandidateHandle is an opaque reference to one search result on the content site.
type CandidateHandle struct {
	Position int    // 1-based position in the result list
	URL      string // navigable URL of the result
	Label    string // text shown on the result card, if any
}

// SiteSession drives one browsing session on the content site.
// A session is stateful: Activate moves it to a detail page and
// GoBackToResults returns it to the most recent result list.
// Implementations need not be safe for concurrent use.
type SiteSession interface {
	// EnumerateCandidates runs a search and returns the results in site order.
	EnumerateCandidates(ctx context.Context, query string) ([]CandidateHandle, error)

	// Activate opens the detail page of a candidate.
	Activate(ctx context.Context, h CandidateHandle) error

	// ReadTitle returns the displayed title of the active page.
	// ok is false when the page does not show one.
	ReadTitle(ctx context.Context) (title string, ok bool)

	// ReadYearText returns the displayed release date text of the active page.
	ReadYearText(ctx context.Context) (text string, ok bool)

	// CurrentURL returns the URL of the active page after redirects.
	CurrentURL() string

	// GoBackToResults returns to the result list of the last search.
	GoBackToResults(ctx context.Context) error

	// FetchInPage requests url with the session's cookies and the given referer
	// and returns the decoded JSON body. A body carrying a top-level "error"
	// field is reported as an error.
	FetchInPage(ctx context.Context, url, referer string) (json.RawMessage, error)

	// Close releases the session.
	Close() error
}

// Site opens browsing sessions and knows the site's download endpoint scheme.
type Site interface {
	// Open starts a fresh session.
	Open(ctx context.Context) (SiteSession, error)

	// DownloadEndpoint returns the download payload URL for a subject.
	DownloadEndpoint(subjectID string, season, episode int) string
}
