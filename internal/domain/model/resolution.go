package model

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// ResolutionKey identifies a resolution request for caching purposes.
// It is derived from resolved metadata, so different external IDs that denote
// the same title, year, season and episode share an entry.
type ResolutionKey struct {
	Title   string
	Year    string
	Season  int
	Episode int
}

// NewResolutionKey builds the key for a metadata record and an episode selector.
func NewResolutionKey(rec MetadataRecord, season, episode int) ResolutionKey {
	return ResolutionKey{
		Title:   rec.Title,
		Year:    rec.ReleaseYear,
		Season:  season,
		Episode: episode,
	}
}

// String returns a stable textual form, safe for use as a map or Redis key.
// Format: {escaped title}:{year}:{season}:{episode}
func (k ResolutionKey) String() string {
	return url.QueryEscape(k.Title) + ":" + k.Year + ":" + strconv.Itoa(k.Season) + ":" + strconv.Itoa(k.Episode)
}

// Resolution is a successful download descriptor.
type Resolution struct {
	Title            string
	ReleaseYear      string
	SubjectID        string
	SourceURL        string
	DownloadEndpoint string
	Payload          json.RawMessage
	Query            string
	MatchedPosition  int // 1-based position of the matched search result
	ResolvedAt       time.Time
}

// ResolutionState is a step of the search-and-resolve state machine.
type ResolutionState string

const (
	StateSearching  ResolutionState = "SEARCHING"
	StateEvaluating ResolutionState = "EVALUATING"
	StateResolving  ResolutionState = "RESOLVING"
	StateResolved   ResolutionState = "RESOLVED"
	StateExhausted  ResolutionState = "EXHAUSTED"
	StateFaulted    ResolutionState = "FAULTED"
)

// Valid state transitions:
// SEARCHING -> EVALUATING -> RESOLVING -> RESOLVED
//
//	|             |  ^  |          \-> FAULTED
//	|             \--/  \-> EXHAUSTED
//	\-> EXHAUSTED, FAULTED
var validStateTransitions = map[ResolutionState][]ResolutionState{
	StateSearching:  {StateEvaluating, StateExhausted, StateFaulted},
	StateEvaluating: {StateEvaluating, StateResolving, StateExhausted, StateFaulted},
	StateResolving:  {StateResolved, StateFaulted},
	StateResolved:   {},
	StateExhausted:  {},
	StateFaulted:    {},
}

// ErrInvalidStateTransition is returned for a transition the state machine does not allow.
var ErrInvalidStateTransition = errors.New("invalid resolution state transition")

func (s ResolutionState) CanTransitionTo(next ResolutionState) bool {
	for _, allowed := range validStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ResolutionState) IsTerminal() bool {
	allowed, ok := validStateTransitions[s]
	return ok && len(allowed) == 0
}

func (s ResolutionState) String() string {
	return string(s)
}

// CandidateVerdict is the outcome of evaluating one search result.
type CandidateVerdict string

const (
	VerdictMatched  CandidateVerdict = "MATCHED"
	VerdictRejected CandidateVerdict = "REJECTED"
)

// SubjectIDFromURL extracts the numeric "id" query parameter of a detail page URL.
func SubjectIDFromURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	id := u.Query().Get("id")
	if id == "" || !isDigits(id) {
		return "", errors.New("page URL has no numeric id parameter")
	}
	return id, nil
}

// ValidSubjectID reports whether id looks like a site subject ID.
func ValidSubjectID(id string) bool {
	return isDigits(id)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
