package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// silentLogger discards chromedp's own log output
var silentLogger = log.New(io.Discard, "", 0)

// Browser renders pages in headless Chrome. It is only used when a site
// answers plain requests with a Cloudflare challenge.
type Browser struct {
	userAgent string
	settle    time.Duration
	timeout   time.Duration
}

// NewBrowser creates a browser renderer
func NewBrowser(userAgent string) *Browser {
	return &Browser{
		userAgent: userAgent,
		settle:    5 * time.Second,
		timeout:   60 * time.Second,
	}
}

// Render navigates to pageURL, waits for the challenge to clear and returns
// the resulting HTML
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.UserAgent(b.userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(silentLogger.Printf),
		chromedp.WithErrorf(silentLogger.Printf),
	)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, b.timeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return html, nil
}
