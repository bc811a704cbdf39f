package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/config"
)

// Manager fetches pages over HTTP
type Manager struct {
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
	progress   func(Outcome)
}

// NewManager creates a manager from the application config
func NewManager(log zerolog.Logger) *Manager {
	cfg := config.Get()

	return NewManagerWithClient(&http.Client{
		Timeout: cfg.Network.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 16,
		},
	}, cfg.Network.UserAgent, log)
}

// NewManagerWithClient creates a manager around an existing client
func NewManagerWithClient(client *http.Client, userAgent string, log zerolog.Logger) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &Manager{
		httpClient: client,
		userAgent:  userAgent,
		log:        log,
	}
}

// OnProgress registers fn to be called after every fetch in Run. fn is called
// from multiple goroutines.
func (m *Manager) OnProgress(fn func(Outcome)) {
	m.progress = fn
}

// Fetch downloads one descriptor into dir, trying the primary URL and then
// each fallback in order. It returns the written path, or the last error
// when every URL fails. dir must already exist.
func (m *Manager) Fetch(ctx context.Context, d Descriptor, dir string, headers http.Header) (string, error) {
	var lastErr error
	for _, u := range d.URLs() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path, err := m.fetchURL(ctx, d, u, dir, headers)
		if err == nil {
			return path, nil
		}

		m.log.Debug().Err(err).Str("url", u).Msg("attempt failed")
		lastErr = err
	}
	return "", lastErr
}

func (m *Manager) fetchURL(ctx context.Context, d Descriptor, rawURL, dir string, headers http.Header) (string, error) {
	fail := func(kind ErrorKind, status int, err error) (string, error) {
		return "", &FetchError{Kind: kind, Descriptor: d, URL: rawURL, StatusCode: status, Err: err}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fail(KindInvalidURL, 0, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fail(KindInvalidURL, 0, fmt.Errorf("missing scheme or host"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(KindInvalidURL, 0, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fail(KindNetwork, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fail(KindHTTPStatus, resp.StatusCode, fmt.Errorf("server returned %s", resp.Status))
	}

	// Read the whole body first so a truncated transfer never leaves a file behind
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(KindNetwork, 0, err)
	}
	if len(body) == 0 {
		return fail(KindNetwork, 0, ErrEmptyBody)
	}

	name := d.Name
	if name == "" {
		name = nameFromURL(rawURL)
	}
	if name == "" {
		name = "download"
	}
	if filepath.Ext(name) == "" {
		if ext := ExtensionFor(resp.Header.Get("Content-Type")); ext != "" {
			name += "." + ext
		}
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fail(KindIO, 0, err)
	}

	return path, nil
}
