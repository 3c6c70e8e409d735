package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

// ResolverConfig holds configuration for Resolver.
type ResolverConfig struct {
	// MaxCandidates is how many search results are evaluated, in site order.
	MaxCandidates int
	// FetchAttempts bounds the download payload fetch, first try included.
	FetchAttempts int
	// BackoffStep is multiplied by the attempt number to get the pause
	// before the next attempt.
	BackoffStep time.Duration
	// StepTimeout bounds every individual site operation.
	StepTimeout time.Duration
}

// DefaultResolverConfig returns the default configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxCandidates: 4,
		FetchAttempts: 3,
		BackoffStep:   time.Second,
		StepTimeout:   60 * time.Second,
	}
}

// ResolveInput describes the title to look for on the content site.
type ResolveInput struct {
	Title        string
	ExpectedYear string
	YearMatching bool
	Season       int
	Episode      int
}

// Resolver runs search-and-resolve against the content site.
type Resolver interface {
	// Resolve searches the site, picks the first matching result and fetches
	// its download payload. Every failure is a *model.ResolutionError.
	Resolve(ctx context.Context, in ResolveInput) (*model.Resolution, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ResolverOption configures a Resolver.
type ResolverOption func(*resolver)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(sleep SleepFunc) ResolverOption {
	return func(r *resolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithResolverClock replaces the time source used for ResolvedAt.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *resolver) {
		if now != nil {
			r.now = now
		}
	}
}

type resolver struct {
	site  repository.Site
	cfg   ResolverConfig
	sleep SleepFunc
	now   func() time.Time
}

// NewResolver creates a new Resolver driving site.
func NewResolver(site repository.Site, cfg ResolverConfig, opts ...ResolverOption) Resolver {
	if cfg.MaxCandidates < 1 {
		cfg.MaxCandidates = 1
	}
	if cfg.FetchAttempts < 1 {
		cfg.FetchAttempts = 1
	}
	r := &resolver{
		site:  site,
		cfg:   cfg,
		sleep: sleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run tracks one pass through the resolution state machine.
type run struct {
	state model.ResolutionState
}

func (r *run) advance(next model.ResolutionState) error {
	if !r.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStateTransition, r.state, next)
	}
	r.state = next
	return nil
}

func (r *resolver) Resolve(ctx context.Context, in ResolveInput) (res *model.Resolution, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic during resolution",
				"title", in.Title,
				"panic", p,
			)
			res = nil
			err = model.NewResolutionError(model.KindSiteUnavailable, fmt.Errorf("panic: %v", p))
		}

		outcome := metrics.OutcomeResolved
		if err != nil {
			outcome = string(model.KindOf(err))
		}
		metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
		metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	st := &run{state: model.StateSearching}

	sess, err := r.openSession(ctx)
	if err != nil {
		return nil, r.fault(st, model.KindSiteUnavailable, fmt.Errorf("open session: %w", err))
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("failed to close site session", "error", cerr)
		}
	}()

	query := model.SearchQuery(in.Title, in.ExpectedYear, in.YearMatching)
	handles, err := r.enumerate(ctx, sess, query)
	if err != nil {
		return nil, r.fault(st, model.KindSiteUnavailable, fmt.Errorf("search %q: %w", query, err))
	}
	if len(handles) > r.cfg.MaxCandidates {
		handles = handles[:r.cfg.MaxCandidates]
	}

	matched := -1
	for i, h := range handles {
		if err := st.advance(model.StateEvaluating); err != nil {
			return nil, r.fault(st, model.KindSiteUnavailable, err)
		}

		verdict := r.evaluate(ctx, sess, h, in)
		metrics.CandidatesEvaluatedTotal.WithLabelValues(string(verdict)).Inc()
		if verdict == model.VerdictMatched {
			matched = h.Position
			break
		}

		if i < len(handles)-1 {
			if err := r.goBack(ctx, sess); err != nil {
				return nil, r.fault(st, model.KindSiteUnavailable, fmt.Errorf("return to results: %w", err))
			}
		}
	}

	if matched < 0 {
		if err := st.advance(model.StateExhausted); err != nil {
			return nil, r.fault(st, model.KindSiteUnavailable, err)
		}
		slog.Info("no candidate matched",
			"title", in.Title,
			"year", in.ExpectedYear,
			"candidates", len(handles),
		)
		return nil, model.NewResolutionError(model.KindNoMatchFound, nil)
	}

	if err := st.advance(model.StateResolving); err != nil {
		return nil, r.fault(st, model.KindSiteUnavailable, err)
	}

	pageURL := sess.CurrentURL()
	subjectID, err := model.SubjectIDFromURL(pageURL)
	if err != nil {
		return nil, r.fault(st, model.KindExtractionFault, fmt.Errorf("%s: %w", pageURL, err))
	}

	endpoint := r.site.DownloadEndpoint(subjectID, in.Season, in.Episode)
	payload, err := r.fetchPayload(ctx, sess, endpoint, pageURL)
	if err != nil {
		return nil, r.fault(st, model.KindDownloadFetchFailed, err)
	}

	if err := st.advance(model.StateResolved); err != nil {
		return nil, r.fault(st, model.KindSiteUnavailable, err)
	}

	return &model.Resolution{
		Title:            in.Title,
		ReleaseYear:      in.ExpectedYear,
		SubjectID:        subjectID,
		SourceURL:        pageURL,
		DownloadEndpoint: endpoint,
		Payload:          payload,
		Query:            query,
		MatchedPosition:  matched,
		ResolvedAt:       r.now(),
	}, nil
}

// fault moves the run to FAULTED and builds the typed error.
func (r *resolver) fault(st *run, kind model.ErrorKind, cause error) error {
	slog.Warn("resolution faulted",
		"state", st.state,
		"kind", kind,
		"error", cause,
	)
	if !st.state.IsTerminal() {
		st.state = model.StateFaulted
	}
	return model.NewResolutionError(kind, cause)
}

// evaluate activates one candidate and applies the matcher to what its page shows.
// An activation failure rejects the candidate.
func (r *resolver) evaluate(ctx context.Context, sess repository.SiteSession, h repository.CandidateHandle, in ResolveInput) model.CandidateVerdict {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	if err := sess.Activate(stepCtx, h); err != nil {
		slog.Warn("candidate activation failed",
			"title", in.Title,
			"candidate", h.Position,
			"error", err,
		)
		return model.VerdictRejected
	}

	title, _ := sess.ReadTitle(stepCtx)
	yearText := ""
	if in.YearMatching {
		yearText, _ = sess.ReadYearText(stepCtx)
	}

	if model.IsMatch(title, yearText, in.Title, in.ExpectedYear, in.YearMatching) {
		return model.VerdictMatched
	}

	slog.Info("candidate rejected",
		"title", in.Title,
		"candidate", h.Position,
		"candidate_title", title,
		"candidate_year", yearText,
	)
	return model.VerdictRejected
}

// fetchPayload requests the download payload, retrying with linear backoff.
func (r *resolver) fetchPayload(ctx context.Context, sess repository.SiteSession, endpoint, referer string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.FetchAttempts; attempt++ {
		payload, err := r.fetchOnce(ctx, sess, endpoint, referer)
		if err == nil {
			metrics.DownloadFetchAttemptsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
			return payload, nil
		}
		metrics.DownloadFetchAttemptsTotal.WithLabelValues(metrics.StatusError).Inc()
		lastErr = err

		slog.Warn("download fetch attempt failed",
			"endpoint", endpoint,
			"attempt", attempt,
			"max_attempts", r.cfg.FetchAttempts,
			"error", err,
		)

		if attempt < r.cfg.FetchAttempts {
			if err := r.sleep(ctx, time.Duration(attempt)*r.cfg.BackoffStep); err != nil {
				return nil, errors.Join(lastErr, err)
			}
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", r.cfg.FetchAttempts, lastErr)
}

func (r *resolver) fetchOnce(ctx context.Context, sess repository.SiteSession, endpoint, referer string) (json.RawMessage, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return sess.FetchInPage(stepCtx, endpoint, referer)
}

func (r *resolver) openSession(ctx context.Context) (repository.SiteSession, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return r.site.Open(stepCtx)
}

func (r *resolver) enumerate(ctx context.Context, sess repository.SiteSession, query string) ([]repository.CandidateHandle, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return sess.EnumerateCandidates(stepCtx, query)
}

func (r *resolver) goBack(ctx context.Context, sess repository.SiteSession) error {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return sess.GoBackToResults(stepCtx)
}

func (r *resolver) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.StepTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.StepTimeout)
	}
	return context.WithCancel(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
