package source

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Toptruyen scrapes www.toptruyen.live
type Toptruyen struct {
	hostMatcher
	scraper *Scraper
}

// NewToptruyen creates the adapter
func NewToptruyen(scraper *Scraper) *Toptruyen {
	return &Toptruyen{
		hostMatcher: hostMatcher{exact: []string{"www.toptruyen.live"}},
		scraper:     scraper,
	}
}

func (t *Toptruyen) Name() string { return "toptruyen" }

func (t *Toptruyen) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	page, err := t.scraper.Fetch(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return parseToptruyen(page)
}

func parseToptruyen(page *Page) (Chapter, error) {
	h1 := page.Doc.Find("h1.chapter-info").First()
	if h1.Length() == 0 {
		return nil, parseError("toptruyen", "title", nil)
	}
	manga, label := titleAndLabel(h1, "- ")

	pages, err := imagePages(page, `div.page-chapter[id^="page"] > img`)
	if err != nil {
		return nil, parseError("toptruyen", "image source", err)
	}

	return &chapter{
		url:     page.URL.String(),
		manga:   manga,
		label:   label,
		referer: "https://www.toptruyen.live/",
		pages:   pages,
	}, nil
}

// imagePages builds indexed descriptors from the src of every img matched
// by selector. An img without src is an error.
func imagePages(page *Page, selector string) ([]downloader.Descriptor, error) {
	var pages []downloader.Descriptor
	var err error
	page.Doc.Find(selector).EachWithBreak(func(i int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			err = errMissingSrc
			return false
		}
		src = absoluteURL(page.URL, src)
		pages = append(pages, downloader.Descriptor{URL: src, Name: indexedName(i, guessExt(src))})
		return true
	})
	return pages, err
}
