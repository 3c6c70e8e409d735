package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/httpx"
)

// DefaultBaseURL is the public moviebox site.
const DefaultBaseURL = "https://moviebox.ng"

const (
	searchPath   = "/web/searchResult"
	downloadPath = "/wefeed-h5-bff/web/subject/download"

	resultCardSelector = "div.pc-card-btn"
	titleSelector      = "h2.pc-title"
	dateSelector       = "div.pc-time"

	maxBodyBytes = 8 << 20
)

var (
	// ErrNoActivePage is returned when a page read happens before any navigation.
	ErrNoActivePage = errors.New("no active page")

	// ErrSessionClosed is returned by every operation after Close.
	ErrSessionClosed = errors.New("site session closed")
)

// StatusError reports a non-2xx response from the site.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.URL, e.StatusCode)
}

// FetchError is a structured failure carried in a JSON body's "error" field.
type FetchError struct {
	Message string
}

func (e *FetchError) Error() string {
	return "download fetch: " + e.Message
}

// MovieBox opens browsing sessions against the moviebox site.
type MovieBox struct {
	baseURL *url.URL
	client  *http.Client
}

var _ repository.Site = (*MovieBox)(nil)

// New creates a MovieBox site. A nil client gets a default browser client.
func New(baseURL string, client *http.Client) (*MovieBox, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("site url must be absolute: %q", baseURL)
	}

	if client == nil {
		client, err = httpx.NewBrowserClient(httpx.DefaultClientConfig())
		if err != nil {
			return nil, fmt.Errorf("build http client: %w", err)
		}
	}
	return &MovieBox{baseURL: u, client: client}, nil
}

// Open starts a session with its own cookie jar.
func (m *MovieBox) Open(ctx context.Context) (repository.SiteSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := httpx.WithCookieJar(m.client)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &session{site: m, client: client}, nil
}

// DownloadEndpoint returns the download payload URL for a subject.
func (m *MovieBox) DownloadEndpoint(subjectID string, season, episode int) string {
	return m.baseURL.String() + downloadPath +
		"?subjectId=" + url.QueryEscape(subjectID) +
		"&se=" + strconv.Itoa(season) +
		"&ep=" + strconv.Itoa(episode)
}

func (m *MovieBox) searchURL(query string) string {
	q := url.Values{}
	q.Set("keyword", query)
	return m.baseURL.String() + searchPath + "?" + q.Encode()
}

// page is one loaded HTML document.
type page struct {
	url string
	doc *goquery.Document
}

// session emulates a single browser tab. It is not safe for concurrent use.
type session struct {
	site    *MovieBox
	client  *http.Client
	results *page
	current *page
	closed  bool
}

func (s *session) EnumerateCandidates(ctx context.Context, query string) ([]repository.CandidateHandle, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	p, err := s.load(ctx, s.site.searchURL(query))
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}

	// A page without cards is an empty result list.
	cards := p.doc.Find(resultCardSelector)
	handles := make([]repository.CandidateHandle, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		handles = append(handles, repository.CandidateHandle{
			Position: i + 1,
			URL:      resolveURL(p.url, cardHref(card)),
			Label:    normSpace(card.Text()),
		})
	})

	s.results = p
	s.current = p
	return handles, nil
}

func (s *session) Activate(ctx context.Context, h repository.CandidateHandle) error {
	if s.closed {
		return ErrSessionClosed
	}
	if h.URL == "" {
		return fmt.Errorf("candidate %d has no link", h.Position)
	}

	p, err := s.load(ctx, h.URL)
	if err != nil {
		return fmt.Errorf("open candidate %d: %w", h.Position, err)
	}
	s.current = p
	return nil
}

func (s *session) ReadTitle(_ context.Context) (string, bool) {
	return s.readText(titleSelector)
}

func (s *session) ReadYearText(_ context.Context) (string, bool) {
	return s.readText(dateSelector)
}

func (s *session) readText(selector string) (string, bool) {
	if s.closed || s.current == nil {
		return "", false
	}
	sel := s.current.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

func (s *session) CurrentURL() string {
	if s.current == nil {
		return ""
	}
	return s.current.url
}

func (s *session) GoBackToResults(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.results == nil {
		return ErrNoActivePage
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.current = s.results
	return nil
}

func (s *session) FetchInPage(ctx context.Context, target, referer string) (json.RawMessage, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	body, _, err := s.do(req)
	if err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, errors.New("download fetch: response is not JSON")
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		var msg string
		if json.Unmarshal(envelope.Error, &msg) != nil {
			msg = string(envelope.Error)
		}
		return nil, &FetchError{Message: msg}
	}

	return json.RawMessage(body), nil
}

func (s *session) Close() error {
	s.closed = true
	s.results = nil
	s.current = nil
	return nil
}

func (s *session) load(ctx context.Context, target string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if s.current != nil {
		req.Header.Set("Referer", s.current.url)
	}

	body, finalURL, err := s.do(req)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &page{url: finalURL, doc: doc}, nil
}

// do executes req and returns the body and the URL it was served from after
// redirects.
func (s *session) do(req *http.Request) ([]byte, string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, finalURL, &StatusError{URL: finalURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, finalURL, fmt.Errorf("read body: %w", err)
	}
	return body, finalURL, nil
}

// cardHref finds the link a result card navigates to. Cards are either
// wrapped in an anchor, contain one, or carry the target in data-href.
func cardHref(card *goquery.Selection) string {
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	if href, ok := card.Attr("data-href"); ok {
		return href
	}
	if href, ok := card.Closest("a[href]").Attr("href"); ok {
		return href
	}
	return ""
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
