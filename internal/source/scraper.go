package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/downloader"
)

// ErrCloudflareBlocked indicates a Cloudflare challenge page was served
var ErrCloudflareBlocked = errors.New("cloudflare challenge detected")

// Page is a fetched HTML page
type Page struct {
	URL  *url.URL
	Body []byte
	Doc  *goquery.Document
}

// NewPage parses body as the HTML document found at u
func NewPage(u *url.URL, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Page{URL: u, Body: body, Doc: doc}, nil
}

// Scraper fetches chapter pages with colly, falling back to a headless
// browser when a Cloudflare challenge is detected and a browser is set
type Scraper struct {
	userAgent string
	timeout   time.Duration
	browser   *Browser
	log       zerolog.Logger
}

// NewScraper creates a scraper. browser may be nil to disable the fallback.
func NewScraper(userAgent string, timeout time.Duration, browser *Browser, log zerolog.Logger) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		userAgent: userAgent,
		timeout:   timeout,
		browser:   browser,
		log:       log,
	}
}

// Fetch retrieves pageURL and parses it
func (s *Scraper) Fetch(ctx context.Context, pageURL string, headers http.Header) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	body, err := s.visit(ctx, pageURL, headers)
	if errors.Is(err, ErrCloudflareBlocked) && s.browser != nil {
		s.log.Debug().Str("url", pageURL).Msg("cloudflare challenge, rendering in browser")
		html, berr := s.browser.Render(ctx, pageURL)
		if berr != nil {
			return nil, fmt.Errorf("browser fallback failed: %w", berr)
		}
		body, err = []byte(html), nil
	}
	if err != nil {
		return nil, err
	}

	return NewPage(u, body)
}

func (s *Scraper) visit(ctx context.Context, pageURL string, headers http.Header) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fail := func(kind downloader.ErrorKind, status int, err error) error {
		return &downloader.FetchError{
			Kind:       kind,
			Descriptor: downloader.Descriptor{URL: pageURL},
			URL:        pageURL,
			StatusCode: status,
			Err:        err,
		}
	}

	var body []byte
	var status int
	var cloudflareDetected bool

	collector := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(s.timeout)
	collector.WithTransport(&contextTransport{ctx: ctx, base: http.DefaultTransport})
	// Hand non-2xx responses to OnResponse so challenge pages can be inspected
	collector.ParseHTTPErrorResponse = true

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body

		page := string(r.Body)
		if (r.StatusCode == http.StatusForbidden || r.StatusCode == http.StatusServiceUnavailable) &&
			(strings.Contains(page, "cf-browser-verification") ||
				strings.Contains(page, "Just a moment...") ||
				strings.Contains(page, "_cf_chl")) {
			cloudflareDetected = true
		}
	})

	if err := collector.Visit(pageURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if status == 0 {
			return nil, fail(downloader.KindNetwork, 0, err)
		}
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cloudflareDetected {
		return nil, fail(downloader.KindHTTPStatus, status, ErrCloudflareBlocked)
	}
	if status < 200 || status > 299 {
		return nil, fail(downloader.KindHTTPStatus, status, fmt.Errorf("server returned %d", status))
	}

	return body, nil
}

// contextTransport binds every request colly sends to ctx, so cancelling a
// resolve aborts the request in flight
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
