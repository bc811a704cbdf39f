package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/billmal071/mangadl/internal/downloader"
)

// mangaparkPagesRe matches the inline array holding the chapter path
// followed by every image URL
var mangaparkPagesRe = regexp.MustCompile(`"/title/[^"]+",(?:"https://[^"]+",)+`)

// Mangapark scrapes mangapark.net chapter pages
type Mangapark struct {
	hostMatcher
	scraper *Scraper
}

// NewMangapark creates the adapter
func NewMangapark(scraper *Scraper) *Mangapark {
	return &Mangapark{
		hostMatcher: hostMatcher{exact: []string{"mangapark.net"}},
		scraper:     scraper,
	}
}

func (m *Mangapark) Name() string { return "mangapark" }

func (m *Mangapark) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	page, err := m.scraper.Fetch(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return parseMangapark(page)
}

func parseMangapark(page *Page) (Chapter, error) {
	match := mangaparkPagesRe.Find(page.Body)
	if match == nil {
		return nil, parseError("mangapark", "page list", nil)
	}

	var pages []downloader.Descriptor
	for i, part := range strings.Split(string(match), ",")[1:] {
		if part == "" {
			break
		}
		pages = append(pages, downloader.Descriptor{
			URL:  strings.Trim(part, `"`),
			Name: fmt.Sprintf("page_%03d", i),
		})
	}

	title := page.Doc.Find(`h3 > a[href^="/title"]`).First()
	if title.Length() == 0 {
		return nil, parseError("mangapark", "title", nil)
	}
	label := page.Doc.Find(`h6 > a[href^="/title"]`).First()
	if label.Length() == 0 {
		return nil, parseError("mangapark", "chapter name", nil)
	}

	return &chapter{
		url:   page.URL.String(),
		manga: strings.TrimSpace(title.Text()),
		label: strings.TrimSpace(label.Text()),
		pages: pages,
	}, nil
}
