package source

import (
	"context"
	"net/url"
)

// Truyenqq scrapes truyenqq and its truyenqqne mirror
type Truyenqq struct {
	hostMatcher
	scraper *Scraper
}

// NewTruyenqq creates the adapter
func NewTruyenqq(scraper *Scraper) *Truyenqq {
	return &Truyenqq{
		hostMatcher: hostMatcher{exact: []string{"truyenqq.com.vn", "truyenqqne.com"}},
		scraper:     scraper,
	}
}

func (t *Truyenqq) Name() string { return "truyenqq" }

func (t *Truyenqq) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	page, err := t.scraper.Fetch(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return parseTruyenqq(page)
}

func parseTruyenqq(page *Page) (Chapter, error) {
	h1 := page.Doc.Find("h1.detail-title").First()
	if h1.Length() == 0 {
		return nil, parseError("truyenqq", "title", nil)
	}
	manga, label := titleAndLabel(h1, "- ")

	pages, err := imagePages(page, `img.lazy[referrerpolicy="origin"]`)
	if err != nil {
		return nil, parseError("truyenqq", "image source", err)
	}

	return &chapter{
		url:     page.URL.String(),
		manga:   manga,
		label:   label,
		referer: "https://truyenqq.com.vn/",
		pages:   pages,
	}, nil
}
