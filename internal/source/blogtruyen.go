package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Blogtruyen scrapes blogtruyen and its blogtruyenmoi mirror
type Blogtruyen struct {
	hostMatcher
	scraper *Scraper
}

// NewBlogtruyen creates the adapter
func NewBlogtruyen(scraper *Scraper) *Blogtruyen {
	return &Blogtruyen{
		hostMatcher: hostMatcher{exact: []string{"blogtruyen.vn", "blogtruyenmoi.com", "m.blogtruyenmoi.com"}},
		scraper:     scraper,
	}
}

func (b *Blogtruyen) Name() string { return "blogtruyen" }

func (b *Blogtruyen) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	target := *u
	// The mobile site serves a different layout
	if strings.HasPrefix(target.Host, "m.") {
		target.Host = "blogtruyenmoi.com"
	}

	headers := map[string][]string{"Accept": {"*/*"}}
	page, err := b.scraper.Fetch(ctx, target.String(), headers)
	if err != nil {
		return nil, err
	}
	return parseBlogtruyen(page)
}

func parseBlogtruyen(page *Page) (Chapter, error) {
	crumbs := page.Doc.Find("header > div.breadcrumbs").First()
	if crumbs.Length() == 0 {
		return nil, parseError("blogtruyen", "title", nil)
	}
	manga, label := breadcrumbTitle(crumbs)

	var pages []downloader.Descriptor
	var missing bool
	page.Doc.Find("article#content > img").Each(func(i int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			missing = true
			return
		}
		src = absoluteURL(page.URL, src)
		pages = append(pages, downloader.Descriptor{URL: src, Name: indexedName(i, guessExt(src))})
	})
	if missing {
		return nil, parseError("blogtruyen", "image source", nil)
	}

	return &chapter{
		url:     page.URL.String(),
		manga:   manga,
		label:   label,
		referer: "https://" + page.URL.Host + "/",
		pages:   pages,
	}, nil
}

// breadcrumbTitle reads "Home > Series > Series chapter" breadcrumbs: the
// last link is the series, the trailing text the chapter
func breadcrumbTitle(crumbs *goquery.Selection) (string, string) {
	links := crumbs.Find("a")
	manga := strings.TrimSpace(links.Last().Text())

	var tail strings.Builder
	if n := links.Last(); n.Length() > 0 {
		for sib := n.Get(0).NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.TextNode {
				tail.WriteString(sib.Data)
			} else {
				tail.WriteString(goquery.NewDocumentFromNode(sib).Text())
			}
		}
	}

	label := strings.TrimSpace(tail.String())
	label = strings.TrimSpace(strings.TrimPrefix(label, ">"))
	if manga != "" {
		label = strings.TrimSpace(strings.Replace(label, manga, "", 1))
	}
	return manga, label
}
