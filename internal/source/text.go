package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// textNodes returns the trimmed, non-empty text nodes under sel in
// document order
func textNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// titleAndLabel splits a heading into series title and chapter label using
// its first two text nodes. sep is stripped from the start of the label.
func titleAndLabel(sel *goquery.Selection, sep string) (string, string) {
	nodes := textNodes(sel)
	var title, label string
	if len(nodes) > 0 {
		title = nodes[0]
	}
	if len(nodes) > 1 {
		label = strings.TrimSpace(strings.TrimPrefix(nodes[1], sep))
	}
	return title, label
}

// absoluteURL turns protocol-relative image URLs into https URLs and
// resolves relative ones against base
func absoluteURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "http"):
		return src
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	}
	ref, err := url.Parse(src)
	if err != nil || base == nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

// guessExt picks an image extension from the URL
func guessExt(src string) string {
	switch {
	case strings.Contains(src, ".png"):
		return "png"
	case strings.Contains(src, ".webp"):
		return "webp"
	default:
		return "jpg"
	}
}

// indexedName builds names like page_07.jpg
func indexedName(i int, ext string) string {
	return fmt.Sprintf("page_%02d.%s", i, ext)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
