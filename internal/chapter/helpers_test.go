package chapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/source"
)

type testChapter struct {
	url, manga, label, referer string
	pages                      []downloader.Descriptor
}

func (c *testChapter) URL() string                    { return c.url }
func (c *testChapter) Manga() string                  { return c.manga }
func (c *testChapter) Label() string                  { return c.label }
func (c *testChapter) Referer() string                { return c.referer }
func (c *testChapter) Pages() []downloader.Descriptor { return c.pages }

type staticResolver struct {
	ch  source.Chapter
	err error
}

func (r staticResolver) Resolve(context.Context, string) (source.Chapter, error) {
	return r.ch, r.err
}

// pageServer serves /page/N.jpg. Paths listed in failures answer with the
// given status for that many requests before succeeding.
type pageServer struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	failures map[string]failure
}

type failure struct {
	status int
	times  int // -1 for always
}

func newPageServer(t *testing.T) *pageServer {
	ps := &pageServer{hits: map[string]int{}, failures: map[string]failure{}}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		n := ps.hits[r.URL.Path]
		f, failing := ps.failures[r.URL.Path]
		ps.mu.Unlock()

		if failing && (f.times < 0 || n <= f.times) {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "image data for %s", r.URL.Path)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pageServer) fail(path string, status, times int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.failures[path] = failure{status: status, times: times}
}

func (ps *pageServer) hitsFor(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[path]
}

func (ps *pageServer) chapter(n int) *testChapter {
	ch := &testChapter{
		url:     ps.URL + "/chapter/1",
		manga:   "Test Manga",
		label:   "chap 1",
		referer: ps.URL + "/",
	}
	for i := 1; i <= n; i++ {
		ch.pages = append(ch.pages, downloader.Descriptor{
			URL:  fmt.Sprintf("%s/page/%d.jpg", ps.URL, i),
			Name: fmt.Sprintf("page_%03d", i),
		})
	}
	return ch
}

func newTestService(ch source.Chapter, srv *httptest.Server, opts Options) *Service {
	mgr := downloader.NewManagerWithClient(srv.Client(), "mangadl-test", zerolog.Nop())
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 10 * time.Millisecond
	}
	return NewService(staticResolver{ch: ch}, mgr, opts, zerolog.Nop())
}

func pagePath(i int) string {
	return fmt.Sprintf("/page/%d.jpg", i)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
