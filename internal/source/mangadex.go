package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/billmal071/mangadl/internal/downloader"
)

// Mangadex reads chapters through the public MangaDex API
type Mangadex struct {
	hostMatcher
	api    string
	client *APIClient
}

// NewMangadex creates the adapter. apiBase is normally https://api.mangadex.org.
func NewMangadex(client *APIClient, apiBase string) *Mangadex {
	return &Mangadex{
		hostMatcher: hostMatcher{exact: []string{"mangadex.org", "www.mangadex.org"}},
		api:         strings.TrimSuffix(apiBase, "/"),
		client:      client,
	}
}

func (m *Mangadex) Name() string { return "mangadex" }

type mangadexChapterResponse struct {
	Data struct {
		Attributes struct {
			Title   *string `json:"title"`
			Volume  *string `json:"volume"`
			Chapter *string `json:"chapter"`
		} `json:"attributes"`
		Relationships []struct {
			Type       string `json:"type"`
			Attributes *struct {
				Title map[string]string `json:"title"`
			} `json:"attributes"`
		} `json:"relationships"`
	} `json:"data"`
}

type mangadexServerResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// Chapter looks up /chapter/{id} pages
func (m *Mangadex) Chapter(ctx context.Context, u *url.URL) (Chapter, error) {
	id, err := mangadexChapterID(u)
	if err != nil {
		return nil, err
	}

	var info mangadexChapterResponse
	if err := m.client.GetJSON(ctx, fmt.Sprintf("%s/chapter/%s?includes[]=manga", m.api, id), &info); err != nil {
		return nil, m.wrap("chapter info", err)
	}

	title := mangadexTitle(&info)
	if title == "" {
		return nil, parseError(m.Name(), "manga title", nil)
	}

	var server mangadexServerResponse
	if err := m.client.GetJSON(ctx, fmt.Sprintf("%s/at-home/server/%s", m.api, id), &server); err != nil {
		return nil, m.wrap("page list", err)
	}
	if server.BaseURL == "" || server.Chapter.Hash == "" {
		return nil, parseError(m.Name(), "page server", nil)
	}

	pages := make([]downloader.Descriptor, 0, len(server.Chapter.DataSaver))
	for i, file := range server.Chapter.DataSaver {
		pages = append(pages, downloader.Descriptor{
			URL:  fmt.Sprintf("%s/data-saver/%s/%s", server.BaseURL, server.Chapter.Hash, file),
			Name: fmt.Sprintf("page_%03d", i+1),
		})
	}

	attrs := info.Data.Attributes
	return &chapter{
		url:   u.String(),
		manga: title,
		label: mangadexLabel(attrs.Volume, attrs.Chapter, attrs.Title),
		pages: pages,
	}, nil
}

// wrap keeps transport errors as they are and turns decoding failures into
// parse errors
func (m *Mangadex) wrap(field string, err error) error {
	var fe *downloader.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return parseError(m.Name(), field, err)
}

func mangadexChapterID(u *url.URL) (string, error) {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "chapter" || segments[1] == "" {
		return "", parseError("mangadex", "chapter id", fmt.Errorf("unexpected path %q", u.Path))
	}
	return segments[1], nil
}

// mangadexTitle prefers the English title, then any title in key order
func mangadexTitle(info *mangadexChapterResponse) string {
	for _, rel := range info.Data.Relationships {
		if rel.Type != "manga" || rel.Attributes == nil {
			continue
		}
		titles := rel.Attributes.Title
		if t := titles["en"]; t != "" {
			return t
		}
		keys := make([]string, 0, len(titles))
		for k := range titles {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if titles[k] != "" {
				return titles[k]
			}
		}
	}
	return ""
}

func mangadexLabel(volume, chap, title *string) string {
	c := "0"
	if chap != nil && *chap != "" {
		c = *chap
	}
	hasVol := volume != nil && *volume != ""
	hasTitle := title != nil && *title != ""

	switch {
	case hasVol && hasTitle:
		return fmt.Sprintf("vol %s chap %s - %s", *volume, c, *title)
	case hasVol:
		return fmt.Sprintf("vol %s chap %s", *volume, c)
	case hasTitle:
		return fmt.Sprintf("chap %s - %s", c, *title)
	default:
		return "chap " + c
	}
}
