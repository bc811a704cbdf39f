package downloader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyBody is the cause of a KindNetwork failure when a 2xx response
// carried no bytes.
var ErrEmptyBody = errors.New("empty response body")

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindInvalidURL - the URL could not be turned into a request
	KindInvalidURL ErrorKind = iota
	// KindIO - writing the file failed
	KindIO
	// KindHTTPStatus - the server answered with a non-2xx status
	KindHTTPStatus
	// KindNetwork - transport failure, timeout, truncated or empty body
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid url"
	case KindIO:
		return "io"
	case KindHTTPStatus:
		return "http status"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// FetchError is returned for a failed fetch. It carries the descriptor so a
// caller can retry by descriptor rather than by URL.
type FetchError struct {
	Kind       ErrorKind
	Descriptor Descriptor
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: server returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed. Only network and
// HTTP status failures qualify.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindHTTPStatus
}

// IsRetryable reports whether err is a retryable *FetchError.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}

// IsTransient reports whether a transport error looks temporary. It is used
// for logging only; the retry decision is made on ErrorKind.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset",
		"connection refused",
		"no such host",
		"temporary failure",
		"timeout",
		"eof",
		"broken pipe",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
