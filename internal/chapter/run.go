package chapter

import (
	"context"
	"net/http"
	"slices"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Fetcher runs a batch of page fetches
type Fetcher interface {
	Run(ctx context.Context, descs []downloader.Descriptor, dir string, headers http.Header, limit *downloader.RateLimit) []downloader.Outcome
}

// DownloadRun is one pass over a set of pages. Methods never modify the
// receiver; each step returns a new value.
type DownloadRun struct {
	pages    []downloader.Descriptor
	index    []int // position of each page in the chapter
	outcomes []downloader.Outcome
	dir      string
	headers  http.Header
	limit    *downloader.RateLimit
}

// NewDownloadRun creates the first pass over every page of a chapter
func NewDownloadRun(pages []downloader.Descriptor, dir string, headers http.Header, limit *downloader.RateLimit) DownloadRun {
	index := make([]int, len(pages))
	for i := range index {
		index[i] = i
	}
	return DownloadRun{
		pages:   slices.Clone(pages),
		index:   index,
		dir:     dir,
		headers: headers.Clone(),
		limit:   limit,
	}
}

// Pages returns the descriptors this run covers
func (r DownloadRun) Pages() []downloader.Descriptor {
	return slices.Clone(r.pages)
}

// Outcomes returns the results of the run, empty before Execute
func (r DownloadRun) Outcomes() []downloader.Outcome {
	return slices.Clone(r.outcomes)
}

// Limit returns the rate limit the run uses, nil for none
func (r DownloadRun) Limit() *downloader.RateLimit {
	return r.limit
}

// Execute fetches the pages and returns the completed run
func (r DownloadRun) Execute(ctx context.Context, f Fetcher) DownloadRun {
	next := r
	next.outcomes = f.Run(ctx, r.pages, r.dir, r.headers, r.limit)
	return next
}

// Failures splits failed outcomes into those worth retrying and the rest
func (r DownloadRun) Failures() (retryable, fatal []downloader.Outcome) {
	for _, o := range r.outcomes {
		switch {
		case o.OK():
		case downloader.IsRetryable(o.Err):
			retryable = append(retryable, o)
		default:
			fatal = append(fatal, o)
		}
	}
	return retryable, fatal
}

// Retry returns a run over the retryable failures of r only
func (r DownloadRun) Retry(limit *downloader.RateLimit) DownloadRun {
	next := DownloadRun{dir: r.dir, headers: r.headers, limit: limit}
	for i, o := range r.outcomes {
		if !o.OK() && downloader.IsRetryable(o.Err) {
			next.pages = append(next.pages, r.pages[i])
			next.index = append(next.index, r.index[i])
		}
	}
	return next
}

// Merge returns r with the outcomes of a later retry pass laid over it
func (r DownloadRun) Merge(retry DownloadRun) DownloadRun {
	next := r
	next.outcomes = slices.Clone(r.outcomes)

	pos := make(map[int]int, len(r.index))
	for i, idx := range r.index {
		pos[idx] = i
	}
	for i, o := range retry.outcomes {
		if p, ok := pos[retry.index[i]]; ok {
			next.outcomes[p] = o
		}
	}
	return next
}

// Err summarises the failed outcomes, or returns nil when every page succeeded
func (r DownloadRun) Err() error {
	var failures []PageFailure
	for _, o := range r.outcomes {
		if !o.OK() {
			failures = append(failures, PageFailure{URL: o.Descriptor.URL, Err: o.Err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &AggregateDownloadError{Total: len(r.outcomes), Failures: failures}
}
