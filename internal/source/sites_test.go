package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/mangadl/internal/downloader"
)

func mustPage(t *testing.T, rawURL, body string) *Page {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	page, err := NewPage(u, []byte(body))
	require.NoError(t, err)
	return page
}

const nettruyenHTML = `<html><body>
<h1 class="txt-primary">
  <a href="/truyen-tranh/grand-blue">Grand Blue</a>
  <span>- Chapter 85</span>
</h1>
<div class="page-chapter"><img src="//cdn.example/p/1.jpg" data-cdn="//backup.example/p/1.jpg"></div>
<div class="page-chapter"><img data-sv1="https://cdn.example/p/2.png"></div>
<div class="page-chapter"><img data-src="https://cdn.example/p/3.webp"></div>
</body></html>`

func TestParseNettruyen(t *testing.T) {
	ch, err := parseNettruyen(mustPage(t, "https://www.nettruyenus.com/truyen-tranh/grand-blue/chap-85/1", nettruyenHTML))
	require.NoError(t, err)

	assert.Equal(t, "Grand Blue", ch.Manga())
	assert.Equal(t, "Chapter 85", ch.Label())
	assert.Equal(t, "https://www.nettruyenus.com/", ch.Referer())
	assert.Equal(t, []downloader.Descriptor{
		{URL: "https://cdn.example/p/1.jpg", Fallbacks: []string{"https://backup.example/p/1.jpg"}, Name: "page_00.jpg"},
		{URL: "https://cdn.example/p/2.png", Name: "page_01.png"},
		{URL: "https://cdn.example/p/3.webp", Name: "page_02.webp"},
	}, ch.Pages())
}

func TestParseNettruyenNoReferrer(t *testing.T) {
	html := `<h1 class="txt-primary">A<span>- 1</span></h1>
<div class="page-chapter"><img src="https://cdn/1.jpg" referrerpolicy="no-referrer"></div>`
	ch, err := parseNettruyen(mustPage(t, "https://nettruyen.test/c/1", html))
	require.NoError(t, err)
	assert.Empty(t, ch.Referer())
	assert.Empty(t, Headers(ch))
}

func TestParseNettruyenMissingTitle(t *testing.T) {
	_, err := parseNettruyen(mustPage(t, "https://nettruyen.test/c/1", `<div class="page-chapter"></div>`))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "nettruyen", pe.Site)
	assert.Equal(t, "title", pe.Field)
}

const blogtruyenHTML = `<html><body>
<header><div class="breadcrumbs">
  <a href="/">Trang chủ</a> &gt; <a href="/123/nisekoi">Nisekoi</a> &gt; Nisekoi chap 229.5 Ngoại truyện
</div></header>
<article id="content">
  <img src="https://i.blogtruyen.vn/1.jpg">
  <img src="https://i.blogtruyen.vn/2.png">
</article>
</body></html>`

func TestParseBlogtruyen(t *testing.T) {
	ch, err := parseBlogtruyen(mustPage(t, "https://blogtruyenmoi.com/c656991/nise-koi", blogtruyenHTML))
	require.NoError(t, err)

	assert.Equal(t, "Nisekoi", ch.Manga())
	assert.Equal(t, "chap 229.5 Ngoại truyện", ch.Label())
	assert.Equal(t, "https://blogtruyenmoi.com/", ch.Referer())
	require.Len(t, ch.Pages(), 2)
	assert.Equal(t, "page_01.png", ch.Pages()[1].Name)
}

func TestParseBlogtruyenMissingSrc(t *testing.T) {
	html := `<header><div class="breadcrumbs"><a>Home</a> &gt; <a>X</a> &gt; X 1</div></header>
<article id="content"><img alt="no source"></article>`
	_, err := parseBlogtruyen(mustPage(t, "https://blogtruyen.vn/c1", html))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "image source", pe.Field)
}

func TestParseToptruyen(t *testing.T) {
	html := `<h1 class="chapter-info">
  <a href="/truyen">One Piece</a>
  <span>- Chapter 1100</span>
</h1>
<div class="page-chapter" id="page_1"><img src="https://img.top/1.jpg"></div>
<div class="page-chapter" id="page_2"><img src="https://img.top/2.jpg"></div>
<div class="page-chapter" id="ad"><img src="https://ads.top/banner.png"></div>`
	ch, err := parseToptruyen(mustPage(t, "https://www.toptruyen.live/truyen/one-piece/chap-1100/1", html))
	require.NoError(t, err)

	assert.Equal(t, "One Piece", ch.Manga())
	assert.Equal(t, "Chapter 1100", ch.Label())
	assert.Equal(t, "https://www.toptruyen.live/", ch.Referer())
	assert.Len(t, ch.Pages(), 2)
}

func TestParseTruyenqq(t *testing.T) {
	html := `<h1 class="detail-title">
<a href="/truyen">Kingdom</a> - Chương 780</h1>
<img class="lazy" referrerpolicy="origin" src="https://i.qq/1.jpg">
<img class="lazy" src="https://i.qq/skip.jpg">
<img class="lazy" referrerpolicy="origin" src="https://i.qq/2.png">`
	ch, err := parseTruyenqq(mustPage(t, "https://truyenqqne.com/truyen-tranh/kingdom-chap-780.html", html))
	require.NoError(t, err)

	assert.Equal(t, "Kingdom", ch.Manga())
	assert.Equal(t, "Chương 780", ch.Label())
	assert.Equal(t, "https://truyenqq.com.vn/", ch.Referer())
	assert.Equal(t, []downloader.Descriptor{
		{URL: "https://i.qq/1.jpg", Name: "page_00.jpg"},
		{URL: "https://i.qq/2.png", Name: "page_01.png"},
	}, ch.Pages())
}

func TestParseTruyentuan(t *testing.T) {
	html := `<div id="read-title">
  <a href="/naruto">Naruto</a>
  <span>&gt; Chapter 700</span>
</div>
<script>
var slides_page_path = [
  "https://cdn.tt/naruto/700/001.jpg",
  "https://cdn.tt/naruto/700/002.jpg"
];
</script>`
	ch, err := parseTruyentuan(mustPage(t, "https://truyentuan.com/naruto-chuong-700/", html))
	require.NoError(t, err)

	assert.Equal(t, "Naruto", ch.Manga())
	assert.Equal(t, "Chapter 700", ch.Label())
	assert.Empty(t, ch.Referer())
	assert.Equal(t, []downloader.Descriptor{
		{URL: "https://cdn.tt/naruto/700/001.jpg", Name: "001.jpg"},
		{URL: "https://cdn.tt/naruto/700/002.jpg", Name: "002.jpg"},
	}, ch.Pages())
}

func TestParseTruyentuanMissingList(t *testing.T) {
	_, err := parseTruyentuan(mustPage(t, "https://truyentuan.com/x/", `<div id="read-title">A &gt; B</div>`))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "page list", pe.Field)
}

func TestParseMangapark(t *testing.T) {
	html := `<html><body>
<h3><a href="/title/74968-mato-seihei-no-slave">Mato Seihei no Slave</a></h3>
<h6><a href="/title/74968-mato-seihei-no-slave/7968180-en-vol.13-ch.106">Vol.13 Ch.106: Bell's Tears</a></h6>
<script type="qwik/json">{"objs":["/title/74968-mato-seihei-no-slave/7968180-en-vol.13-ch.106","https://s01.mp/a/1.jpg","https://s01.mp/a/2.jpg","https://s01.mp/a/3.jpg",5]}</script>
</body></html>`
	ch, err := parseMangapark(mustPage(t, "https://mangapark.net/title/74968-mato-seihei-no-slave/7968180-en-vol.13-ch.106", html))
	require.NoError(t, err)

	assert.Equal(t, "Mato Seihei no Slave", ch.Manga())
	assert.Equal(t, "Vol.13 Ch.106: Bell's Tears", ch.Label())
	assert.Equal(t, []downloader.Descriptor{
		{URL: "https://s01.mp/a/1.jpg", Name: "page_000"},
		{URL: "https://s01.mp/a/2.jpg", Name: "page_001"},
		{URL: "https://s01.mp/a/3.jpg", Name: "page_002"},
	}, ch.Pages())
}

func TestParseMangaparkMissingPages(t *testing.T) {
	_, err := parseMangapark(mustPage(t, "https://mangapark.net/title/1/2", `<h3><a href="/title/1">A</a></h3>`))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "page list", pe.Field)
}

func TestMangadexLabel(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.Equal(t, "vol 3 chap 12 - Storm", mangadexLabel(s("3"), s("12"), s("Storm")))
	assert.Equal(t, "vol 3 chap 12", mangadexLabel(s("3"), s("12"), nil))
	assert.Equal(t, "chap 12 - Storm", mangadexLabel(nil, s("12"), s("Storm")))
	assert.Equal(t, "chap 0", mangadexLabel(nil, nil, nil))
	assert.Equal(t, "chap 0", mangadexLabel(s(""), nil, s("")))
}

func TestMangadexChapter(t *testing.T) {
	const id = "6f1f5e2c-1d38-4b1a-9a4c-1a2b3c4d5e6f"

	mux := http.NewServeMux()
	mux.HandleFunc("/chapter/"+id, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "manga", r.URL.Query().Get("includes[]"))
		fmt.Fprint(w, `{"result":"ok","data":{"id":"`+id+`","attributes":{"volume":"2","chapter":"14","title":null},
			"relationships":[{"type":"scanlation_group"},{"type":"manga","attributes":{"title":{"ja-ro":"Sono Bisque","en":"My Dress-Up Darling"}}}]}}`)
	})
	mux.HandleFunc("/at-home/server/"+id, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"ok","baseUrl":"https://uploads.example","chapter":{"hash":"abc123","data":["x1.png"],"dataSaver":["s1.jpg","s2.jpg"]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	site := NewMangadex(NewAPIClient("mangadl-test", time.Second), srv.URL+"/")
	u, _ := url.Parse("https://mangadex.org/chapter/" + id + "/1")

	ch, err := site.Chapter(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, "My Dress-Up Darling", ch.Manga())
	assert.Equal(t, "vol 2 chap 14", ch.Label())
	assert.Equal(t, []downloader.Descriptor{
		{URL: "https://uploads.example/data-saver/abc123/s1.jpg", Name: "page_001"},
		{URL: "https://uploads.example/data-saver/abc123/s2.jpg", Name: "page_002"},
	}, ch.Pages())
}

func TestMangadexErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chapter/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":{"attributes":{},"relationships":[]}}`)
	}))
	defer srv.Close()

	site := NewMangadex(NewAPIClient("mangadl-test", time.Second), srv.URL)

	u, _ := url.Parse("https://mangadex.org/title/abc")
	_, err := site.Chapter(context.Background(), u)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "chapter id", pe.Field)

	u, _ = url.Parse("https://mangadex.org/chapter/missing")
	_, err = site.Chapter(context.Background(), u)
	var fe *downloader.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)

	u, _ = url.Parse("https://mangadex.org/chapter/untitled")
	_, err = site.Chapter(context.Background(), u)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "manga title", pe.Field)
}

func TestNettruyenChapterOverHTTP(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, nettruyenHTML)
	}))
	defer srv.Close()

	site := NewNettruyen(NewScraper("mangadl-test", time.Second, nil, zerolog.Nop()))
	u, _ := url.Parse(srv.URL + "/truyen-tranh/grand-blue/chap-85/1")

	ch, err := site.Chapter(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "mangadl-test", agent)
	assert.Equal(t, "Grand Blue", ch.Manga())
	assert.Len(t, ch.Pages(), 3)
	assert.Equal(t, srv.URL+"/", ch.Referer())
}
