package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Nettruyen scrapes the nettruyen mirror family, whose domain changes often
type Nettruyen struct {
	hostMatcher
	scraper *Scraper
}

// NewNettruyen creates the adapter
func NewNettruyen(scraper *Scraper) *Nettruyen {
	return &Nettruyen{
		hostMatcher: hostMatcher{contains: "nettruyen"},
		scraper:     scraper,
	}
}

func (n *Nettruyen) Name() string { return "nettruyen" }

func (n *Nettruyen) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	page, err := n.scraper.Fetch(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return parseNettruyen(page)
}

func parseNettruyen(page *Page) (Chapter, error) {
	h1 := page.Doc.Find("h1.txt-primary").First()
	if h1.Length() == 0 {
		return nil, parseError("nettruyen", "title", nil)
	}
	manga, label := titleAndLabel(h1, "- ")

	var pages []downloader.Descriptor
	sendReferer := true
	page.Doc.Find("div.page-chapter > img").Each(func(i int, img *goquery.Selection) {
		if policy, _ := img.Attr("referrerpolicy"); policy == "no-referrer" {
			sendReferer = false
		}

		src := firstAttr(img, "src", "data-sv1", "data-src")
		if src == "" {
			return
		}
		src = absoluteURL(page.URL, src)

		d := downloader.Descriptor{URL: src, Name: indexedName(i, guessExt(src))}
		if cdn, ok := img.Attr("data-cdn"); ok && cdn != "" {
			d.Fallbacks = []string{absoluteURL(page.URL, cdn)}
		}
		pages = append(pages, d)
	})

	c := &chapter{
		url:   page.URL.String(),
		manga: manga,
		label: label,
		pages: pages,
	}
	if sendReferer {
		c.referer = fmt.Sprintf("%s://%s/", page.URL.Scheme, page.URL.Host)
	}
	return c, nil
}

// firstAttr returns the first present, non-empty attribute among names
func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}
