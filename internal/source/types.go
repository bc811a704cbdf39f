package source

import (
	"context"
	"net/http"
	"net/url"
	"slices"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Chapter is the uniform description of one chapter produced by a site adapter
type Chapter interface {
	// URL is the canonical chapter URL
	URL() string
	// Manga is the series title
	Manga() string
	// Label is the chapter label, e.g. "chap 12 - The Storm"
	Label() string
	// Pages returns the page descriptors in reading order
	Pages() []downloader.Descriptor
	// Referer is the Referer header pages must be fetched with, or ""
	Referer() string
}

// Site is an adapter for one website or mirror family
type Site interface {
	// Name identifies the site in logs and listings
	Name() string

	// Hosts describes the host rules, for display
	Hosts() []string

	// Match reports whether the lowercase host belongs to this site
	Match(host string) bool

	// Chapter fetches and parses the chapter at u
	Chapter(ctx context.Context, u *url.URL) (Chapter, error)
}

// Headers returns the request headers pages of c must be fetched with
func Headers(c Chapter) http.Header {
	h := http.Header{}
	if ref := c.Referer(); ref != "" {
		h.Set("Referer", ref)
	}
	return h
}

type chapter struct {
	url     string
	manga   string
	label   string
	referer string
	pages   []downloader.Descriptor
}

func (c *chapter) URL() string     { return c.url }
func (c *chapter) Manga() string   { return c.manga }
func (c *chapter) Label() string   { return c.label }
func (c *chapter) Referer() string { return c.referer }

func (c *chapter) Pages() []downloader.Descriptor {
	return slices.Clone(c.pages)
}

// hostMatcher matches exact hosts and, optionally, any host containing a
// substring (mirror families that rotate domains)
type hostMatcher struct {
	exact    []string
	contains string
}

func (m hostMatcher) Hosts() []string {
	hosts := slices.Clone(m.exact)
	if m.contains != "" {
		hosts = append(hosts, "*"+m.contains+"*")
	}
	return hosts
}

func (m hostMatcher) Match(host string) bool {
	if slices.Contains(m.exact, host) {
		return true
	}
	return m.contains != "" && containsFold(host, m.contains)
}
