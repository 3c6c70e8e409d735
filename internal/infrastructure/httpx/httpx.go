package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultAcceptLanguage = "en"

// Transport sets a rotating User-Agent and a fixed Accept-Language on every
// request that does not already carry them. It never retries; callers own
// their retry policy.
type Transport struct {
	Base http.RoundTripper

	// AcceptLanguage is sent when the request has none. Plain "en" keeps the
	// site from localising titles by region.
	AcceptLanguage string

	ua *uaPool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		pool := t.ua
		if pool == nil {
			pool = globalUA
		}
		r.Header.Set("User-Agent", pool.random())
	}
	if r.Header.Get("Accept-Language") == "" {
		lang := t.AcceptLanguage
		if lang == "" {
			lang = defaultAcceptLanguage
		}
		r.Header.Set("Accept-Language", lang)
	}
	return base.RoundTrip(r)
}

// ClientConfig holds configuration for the browsing client.
type ClientConfig struct {
	// ProxyURL routes all traffic through a proxy when non-empty. Proxy mode
	// disables keep-alive so rotating proxies see a new connection per request.
	ProxyURL string

	// Timeout bounds a whole request including the body read.
	Timeout time.Duration
}

// DefaultClientConfig returns sensible defaults for a browsing client.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{Timeout: 60 * time.Second}
}

// NewBrowserClient builds an HTTP client that behaves like a browser tab:
// it keeps cookies across requests, follows redirects and identifies itself
// with a desktop User-Agent.
func NewBrowserClient(cfg ClientConfig) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   4,
	}

	proxyURL := strings.TrimSpace(cfg.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &Transport{Base: base, ua: globalUA},
		Jar:       jar,
		Timeout:   cfg.Timeout,
	}, nil
}

// WithCookieJar returns a shallow copy of client using a fresh cookie jar.
// Sessions share the transport but never each other's cookies.
func WithCookieJar(client *http.Client) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := *client
	c.Jar = jar
	return &c, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
