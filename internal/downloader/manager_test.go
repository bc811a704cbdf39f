package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(srv *httptest.Server) *Manager {
	return NewManagerWithClient(srv.Client(), "mangadl-test", zerolog.Nop())
}

func TestFetchExplicitName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/img/a.bin", Name: "page_001"}, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page_001.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestFetchExtensionInference(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"jpeg", "image/jpeg", "scan.jpg"},
		{"json", "application/json; charset=utf-8", "scan.json"},
		{"unknown", "application/x-unknown", "scan"},
		{"missing", "", "scan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = []string{tt.contentType}
				w.Write([]byte("x"))
			}))
			defer srv.Close()

			dir := t.TempDir()
			path, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/pages/scan"}, dir, nil)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), path)
		})
	}
}

func TestFetchKeepsExistingExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/p/01.webp"}, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "01.webp"), path)
}

func TestFetchFallbackOrder(t *testing.T) {
	var mu sync.Mutex
	var hits []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()

		switch r.URL.Path {
		case "/primary.jpg":
			w.WriteHeader(http.StatusInternalServerError)
		case "/first.jpg":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	d := Descriptor{
		URL:       srv.URL + "/primary.jpg",
		Fallbacks: []string{srv.URL + "/first.jpg", srv.URL + "/second.jpg", srv.URL + "/third.jpg"},
	}
	dir := t.TempDir()
	path, err := newTestManager(srv).Fetch(context.Background(), d, dir, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "second.jpg"), path)
	assert.Equal(t, []string{"/primary.jpg", "/first.jpg", "/second.jpg"}, hits)
}

func TestFetchReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := Descriptor{URL: srv.URL + "/a", Fallbacks: []string{srv.URL + "/b"}, Name: "page_01"}
	_, err := newTestManager(srv).Fetch(context.Background(), d, t.TempDir(), nil)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, srv.URL+"/b", fe.URL)
	assert.Equal(t, d.Name, fe.Descriptor.Name)
	assert.True(t, IsRetryable(err))
}

func TestFetchInvalidURL(t *testing.T) {
	m := NewManagerWithClient(nil, "", zerolog.Nop())

	_, err := m.Fetch(context.Background(), Descriptor{URL: "not a url"}, t.TempDir(), nil)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindInvalidURL, fe.Kind)
	assert.False(t, IsRetryable(err))
}

func TestFetchMissingDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/x.jpg"}, dir, nil)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindIO, fe.Kind)
	assert.NoDirExists(t, dir)
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/gone.jpg"
	client := srv.Client()
	srv.Close()

	m := NewManagerWithClient(client, "", zerolog.Nop())
	_, err := m.Fetch(context.Background(), Descriptor{URL: url}, t.TempDir(), nil)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.True(t, fe.Retryable())
}

func TestFetchSendsHeaders(t *testing.T) {
	var referer, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		agent = r.Header.Get("User-Agent")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("Referer", "https://example.com/")

	_, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/x.jpg"}, t.TempDir(), headers)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", referer)
	assert.Equal(t, "mangadl-test", agent)
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/blank.jpg"}, dir, nil)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.ErrorIs(t, err, ErrEmptyBody)
	assert.True(t, IsRetryable(err))
	assert.NoFileExists(t, filepath.Join(dir, "blank.jpg"))
}

func TestFetchTrailingSlashName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := newTestManager(srv).Fetch(context.Background(), Descriptor{URL: srv.URL + "/img/"}, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "img.webp"), path)
}
