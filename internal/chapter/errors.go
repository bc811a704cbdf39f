package chapter

import (
	"fmt"
	"strings"
)

// PageFailure is one page that could not be fetched
type PageFailure struct {
	URL string
	Err error
}

// AggregateDownloadError lists every page still failing after the retry pass
type AggregateDownloadError struct {
	Total    int
	Failures []PageFailure
}

func (e *AggregateDownloadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to download %d of %d pages", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.URL, f.Err)
	}
	return b.String()
}

// Unwrap exposes the page errors to errors.Is and errors.As
func (e *AggregateDownloadError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ArchiveError is returned when packaging fails. The pages are left in Dir.
type ArchiveError struct {
	Path string
	Dir  string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("failed to create archive %s (pages kept in %s): %v", e.Path, e.Dir, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
