package source

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned when a chapter URL cannot be parsed or has no host
var ErrInvalidURL = errors.New("invalid url")

// SiteNotSupportedError is returned when no adapter handles the domain
type SiteNotSupportedError struct {
	Domain string
}

func (e *SiteNotSupportedError) Error() string {
	return fmt.Sprintf("site not supported: %s", e.Domain)
}

// ParseError is returned when an adapter cannot find an expected part of
// the page or API response
type ParseError struct {
	Site  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cannot parse %s: %v", e.Site, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: cannot find %s", e.Site, e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(site, field string, err error) error {
	return &ParseError{Site: site, Field: field, Err: err}
}

var errMissingSrc = errors.New("img without src")
