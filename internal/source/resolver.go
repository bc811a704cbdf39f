package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/config"
)

// Resolver picks the site adapter for a chapter URL
type Resolver struct {
	sites []Site
	log   zerolog.Logger
}

// NewResolver creates a resolver over sites, tried in order
func NewResolver(log zerolog.Logger, sites ...Site) *Resolver {
	return &Resolver{sites: sites, log: log}
}

// NewDefaultResolver registers every supported site using the application config
func NewDefaultResolver(log zerolog.Logger) *Resolver {
	cfg := config.Get()

	var browser *Browser
	if cfg.Network.BrowserFallback {
		browser = NewBrowser(cfg.Network.UserAgent)
	}
	scraper := NewScraper(cfg.Network.UserAgent, cfg.Network.Timeout, browser, log)
	api := NewAPIClient(cfg.Network.UserAgent, cfg.Network.Timeout)

	return NewResolver(log, DefaultSites(scraper, api, cfg.Network.MangadexAPI)...)
}

// DefaultSites returns one adapter per supported site
func DefaultSites(scraper *Scraper, api *APIClient, mangadexAPI string) []Site {
	return []Site{
		NewMangapark(scraper),
		NewMangadex(api, mangadexAPI),
		NewTruyenqq(scraper),
		NewBlogtruyen(scraper),
		NewToptruyen(scraper),
		NewTruyentuan(scraper),
		NewNettruyen(scraper),
	}
}

// Sites returns the registered adapters
func (r *Resolver) Sites() []Site {
	return r.sites
}

// Lookup returns the adapter for rawURL without fetching anything
func (r *Resolver) Lookup(rawURL string) (Site, *url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil, fmt.Errorf("%w: %q has no http(s) scheme", ErrInvalidURL, rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}

	for _, site := range r.sites {
		if site.Match(host) {
			return site, u, nil
		}
	}
	return nil, nil, &SiteNotSupportedError{Domain: host}
}

// Resolve finds the adapter for rawURL and lets it build the chapter
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (ch Chapter, err error) {
	site, u, err := r.Lookup(rawURL)
	if err != nil {
		return nil, err
	}

	r.log.Debug().Str("site", site.Name()).Str("url", u.String()).Msg("resolving chapter")

	// Adapter panics surface as parse errors
	defer func() {
		if p := recover(); p != nil {
			ch, err = nil, parseError(site.Name(), "document", fmt.Errorf("panic: %v", p))
		}
	}()

	ch, err = site.Chapter(ctx, u)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Str("site", site.Name()).Int("pages", len(ch.Pages())).Msg("chapter resolved")
	return ch, nil
}
