package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/billmal071/mangadl/internal/downloader"
)

// APIClient performs JSON requests against site APIs
type APIClient struct {
	userAgent string
	http      *http.Client
}

// NewAPIClient creates a JSON API client
func NewAPIClient(userAgent string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		userAgent: userAgent,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetJSON fetches url and decodes the body into v. Decoding failures are
// returned as *json.SyntaxError or *json.UnmarshalTypeError; transport and
// status failures as *downloader.FetchError.
func (c *APIClient) GetJSON(ctx context.Context, url string, v any) error {
	fail := func(kind downloader.ErrorKind, status int, err error) error {
		return &downloader.FetchError{
			Kind:       kind,
			Descriptor: downloader.Descriptor{URL: url},
			URL:        url,
			StatusCode: status,
			Err:        err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(downloader.KindInvalidURL, 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(downloader.KindNetwork, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fail(downloader.KindHTTPStatus, resp.StatusCode, fmt.Errorf("API error: %s", resp.Status))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
