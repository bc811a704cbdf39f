package source

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"regexp"

	"github.com/billmal071/mangadl/internal/downloader"
)

var slidesRe = regexp.MustCompile(`(?s)slides_page_path = (\[.*?\])`)

// Truyentuan scrapes truyentuan.com, which embeds the page list as a
// JavaScript array
type Truyentuan struct {
	hostMatcher
	scraper *Scraper
}

// NewTruyentuan creates the adapter
func NewTruyentuan(scraper *Scraper) *Truyentuan {
	return &Truyentuan{
		hostMatcher: hostMatcher{exact: []string{"truyentuan.com"}},
		scraper:     scraper,
	}
}

func (t *Truyentuan) Name() string { return "truyentuan" }

func (t *Truyentuan) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	page, err := t.scraper.Fetch(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return parseTruyentuan(page)
}

func parseTruyentuan(page *Page) (Chapter, error) {
	title := page.Doc.Find("div#read-title").First()
	if title.Length() == 0 {
		return nil, parseError("truyentuan", "title", nil)
	}
	manga, label := titleAndLabel(title, "> ")

	m := slidesRe.FindSubmatch(page.Body)
	if m == nil {
		return nil, parseError("truyentuan", "page list", nil)
	}
	var urls []string
	if err := json.Unmarshal(m[1], &urls); err != nil {
		return nil, parseError("truyentuan", "page list", err)
	}

	pages := make([]downloader.Descriptor, 0, len(urls))
	for _, u := range urls {
		d := downloader.Descriptor{URL: u}
		if parsed, err := url.Parse(u); err == nil {
			if name := path.Base(parsed.Path); name != "." && name != "/" {
				d.Name = name
			}
		}
		pages = append(pages, d)
	}

	return &chapter{
		url:   page.URL.String(),
		manga: manga,
		label: label,
		pages: pages,
	}, nil
}
