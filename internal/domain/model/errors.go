package model

import "errors"

// ErrorKind classifies a failed resolution.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindMetadataUnavailable ErrorKind = "metadata_unavailable"
	KindNoMatchFound        ErrorKind = "no_match_found"
	KindExtractionFault     ErrorKind = "extraction_fault"
	KindDownloadFetchFailed ErrorKind = "download_fetch_failed"
	KindSiteUnavailable     ErrorKind = "site_unavailable"
)

// Default user-facing messages per kind.
const (
	MsgNoMatchFound        = "Download unavailable"
	MsgMetadataUnavailable = "Could not fetch data from TMDB"
	MsgExtractionFault     = "Could not extract subjectId from URL"
	MsgDownloadFetchFailed = "Failed to fetch download data"
	MsgSiteUnavailable     = "Search results unavailable"
)

// ResolutionError is the typed failure returned by every pipeline stage.
// Lower-level faults are carried in Err and never shown to clients.
type ResolutionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is comparisons; only Kind is compared.
var (
	ErrMetadataUnavailable = &ResolutionError{Kind: KindMetadataUnavailable, Message: MsgMetadataUnavailable}
	ErrNoMatchFound        = &ResolutionError{Kind: KindNoMatchFound, Message: MsgNoMatchFound}
	ErrExtractionFault     = &ResolutionError{Kind: KindExtractionFault, Message: MsgExtractionFault}
	ErrDownloadFetchFailed = &ResolutionError{Kind: KindDownloadFetchFailed, Message: MsgDownloadFetchFailed}
	ErrSiteUnavailable     = &ResolutionError{Kind: KindSiteUnavailable, Message: MsgSiteUnavailable}
	ErrValidation          = &ResolutionError{Kind: KindValidation, Message: "Invalid request"}
)

// NewResolutionError builds an error of the given kind with its default message.
func NewResolutionError(kind ErrorKind, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Message: defaultMessage(kind), Err: err}
}

// NewValidationError reports a rejected request; the cause is the message.
func NewValidationError(err error) *ResolutionError {
	return &ResolutionError{Kind: KindValidation, Message: err.Error(), Err: err}
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a resolution error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindMetadataUnavailable:
		return MsgMetadataUnavailable
	case KindNoMatchFound:
		return MsgNoMatchFound
	case KindExtractionFault:
		return MsgExtractionFault
	case KindDownloadFetchFailed:
		return MsgDownloadFetchFailed
	case KindSiteUnavailable:
		return MsgSiteUnavailable
	default:
		return "Invalid request"
	}
}
