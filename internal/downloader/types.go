package downloader

import (
	"net/url"
	"path"
	"time"
)

// Descriptor describes one resource to fetch.
type Descriptor struct {
	URL       string   `json:"url"`
	Fallbacks []string `json:"fallbacks,omitempty"`
	Name      string   `json:"name,omitempty"` // target file name, derived from the URL when empty
}

// URLs returns the primary URL followed by the fallbacks, in attempt order.
func (d Descriptor) URLs() []string {
	urls := make([]string, 0, 1+len(d.Fallbacks))
	urls = append(urls, d.URL)
	return append(urls, d.Fallbacks...)
}

// PredictedName is the file name the descriptor will be saved under when its
// primary URL succeeds, before any content-type extension is added.
func (d Descriptor) PredictedName() string {
	if d.Name != "" {
		return d.Name
	}
	return nameFromURL(d.URL)
}

// RateLimit allows at most Items fetches per Window.
type RateLimit struct {
	Items  int
	Window time.Duration
}

// ChunkSize returns how many of n items may start together. A nil limit or
// one without a positive Items lets all n start at once.
func (l *RateLimit) ChunkSize(n int) int {
	if l == nil || l.Items <= 0 || l.Items >= n {
		return n
	}
	return l.Items
}

// NewRateLimit returns nil when items is not positive, which disables limiting.
func NewRateLimit(items int, window time.Duration) *RateLimit {
	if items <= 0 {
		return nil
	}
	return &RateLimit{Items: items, Window: window}
}

// Outcome is the result of fetching one descriptor.
type Outcome struct {
	Descriptor Descriptor
	Path       string
	Err        error
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// nameFromURL returns the last non-empty path segment, so a URL ending in a
// slash is named after its parent segment. It returns "" when the path has no
// segment and the caller picks a default name.
func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
