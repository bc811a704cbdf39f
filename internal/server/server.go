package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/source"
)

const banner = "mangadl server\n"

// Chapters resolves and downloads chapters for the handlers
type Chapters interface {
	Resolve(ctx context.Context, rawURL string) (source.Chapter, error)
	DownloadArchive(ctx context.Context, ch source.Chapter, archivePath string) (*chapter.Result, error)
}

// Server serves chapter info and archives over HTTP
type Server struct {
	chapters Chapters
	sites    []source.Site
	tempDir  string
	log      zerolog.Logger
}

type chapterRequest struct {
	URL string `json:"url"`
}

type chapterInfoResponse struct {
	ChapterName string `json:"chapter_name"`
}

type siteResponse struct {
	Name  string   `json:"name"`
	Hosts []string `json:"hosts"`
}

// New creates a server. Archives are built under tempDir, or the system
// temp directory when empty.
func New(chapters Chapters, sites []source.Site, tempDir string, log zerolog.Logger) *Server {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Server{
		chapters: chapters,
		sites:    sites,
		tempDir:  tempDir,
		log:      log,
	}
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /sites", s.handleSites)
	mux.HandleFunc("POST /get_chapter_info", s.handleChapterInfo)
	mux.HandleFunc("POST /download", s.handleDownload)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, banner)
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites := make([]siteResponse, 0, len(s.sites))
	for _, site := range s.sites {
		sites = append(sites, siteResponse{Name: site.Name(), Hosts: site.Hosts()})
	}
	writeJSON(w, http.StatusOK, sites)
}

func (s *Server) handleChapterInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	ch, err := s.chapters.Resolve(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapterInfoResponse{ChapterName: chapter.FullName(ch)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	ch, err := s.chapters.Resolve(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	path := filepath.Join(s.tempDir, uuid.NewString()+".cbz")
	defer os.Remove(path)

	if _, err := s.chapters.DownloadArchive(r.Context(), ch, path); err != nil {
		var ae *chapter.ArchiveError
		if errors.As(err, &ae) {
			os.RemoveAll(ae.Dir)
		}
		s.writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, err)
		return
	}

	name := chapter.FullName(ch)
	if name == "" {
		name = "chapter"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name + ".cbz"}))
	if _, err := io.Copy(w, f); err != nil {
		s.log.Warn().Err(err).Str("chapter", name).Msg("failed to send archive")
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (chapterRequest, bool) {
	var req chapterRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return req, false
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return req, false
	}
	return req, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		notSupported *source.SiteNotSupportedError
		parseErr     *source.ParseError
		fetchErr     *downloader.FetchError
		aggregate    *chapter.AggregateDownloadError
	)
	switch {
	case errors.Is(err, source.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.As(err, &notSupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &parseErr), errors.As(err, &aggregate), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
