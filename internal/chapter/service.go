package chapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/source"
)

// DefaultRetryBackoff is the pause before failed pages are fetched again
const DefaultRetryBackoff = 5 * time.Second

// Resolver turns a chapter URL into a chapter description
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (source.Chapter, error)
}

// Options tune a Service
type Options struct {
	// RateLimit applies to the first pass; nil fetches every page at once
	RateLimit *downloader.RateLimit
	// RetryBackoff is the wait before the retry pass
	RetryBackoff time.Duration
	// RetryRateLimited applies RateLimit to the retry pass as well. By
	// default the retry pass runs unlimited.
	RetryRateLimited bool
}

// Result describes a finished download
type Result struct {
	Chapter source.Chapter
	Path    string // directory or archive
	Pages   int
	Retried int
}

// Service downloads chapters
type Service struct {
	resolver Resolver
	fetcher  Fetcher
	opts     Options
	log      zerolog.Logger
}

// NewService creates a chapter service
func NewService(resolver Resolver, fetcher Fetcher, opts Options, log zerolog.Logger) *Service {
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		opts:     opts,
		log:      log,
	}
}

// Resolve returns the chapter description for rawURL
func (s *Service) Resolve(ctx context.Context, rawURL string) (source.Chapter, error) {
	return s.resolver.Resolve(ctx, rawURL)
}

// DisplayName returns the sanitized "{title} - {label}" name of the chapter
func (s *Service) DisplayName(ctx context.Context, rawURL string) (string, error) {
	ch, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return FullName(ch), nil
}

// DownloadChapter downloads every page of the chapter at rawURL into dest,
// or into ./{title} - {label} when dest is empty
func (s *Service) DownloadChapter(ctx context.Context, rawURL, dest string) (*Result, error) {
	ch, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.Download(ctx, ch, dest)
}

// DownloadChapterAsArchive downloads the chapter and packs it into a zip
// archive at archivePath, or ./{title} - {label}.cbz when empty. The loose
// pages are removed only once the archive is complete.
func (s *Service) DownloadChapterAsArchive(ctx context.Context, rawURL, archivePath string) (*Result, error) {
	ch, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.DownloadArchive(ctx, ch, archivePath)
}

// Download fetches the pages of an already resolved chapter into dest
func (s *Service) Download(ctx context.Context, ch source.Chapter, dest string) (*Result, error) {
	pages := ch.Pages()
	if err := downloader.DetectCollisions(pages); err != nil {
		return nil, err
	}

	if dest == "" {
		dest = filepath.Join(".", FullName(ch))
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chapter directory: %w", err)
	}

	log := s.log.With().Str("chapter", FullName(ch)).Logger()
	log.Info().Int("pages", len(pages)).Str("dir", dest).Msg("downloading chapter")

	first := NewDownloadRun(pages, dest, source.Headers(ch), s.opts.RateLimit).Execute(ctx, s.fetcher)
	final := first

	retryable, fatal := first.Failures()
	if len(retryable) > 0 && ctx.Err() == nil {
		var limit *downloader.RateLimit
		if s.opts.RetryRateLimited {
			limit = s.opts.RateLimit
		}

		log.Warn().
			Int("retryable", len(retryable)).
			Int("fatal", len(fatal)).
			Dur("backoff", s.opts.RetryBackoff).
			Msg("retrying failed pages")

		if err := downloader.Wait(ctx, s.opts.RetryBackoff); err != nil {
			return nil, err
		}
		final = first.Merge(first.Retry(limit).Execute(ctx, s.fetcher))
	}

	if err := final.Err(); err != nil {
		return nil, err
	}

	outcomes := final.Outcomes()
	if err := downloader.CheckDistinctPaths(outcomes); err != nil {
		return nil, err
	}

	log.Info().Msg("chapter downloaded")
	return &Result{Chapter: ch, Path: dest, Pages: len(pages), Retried: len(retryable)}, nil
}

// DownloadArchive downloads an already resolved chapter into a staging
// directory next to archivePath and packs it into archivePath. If packing
// fails the staging directory is kept and reported in the ArchiveError.
func (s *Service) DownloadArchive(ctx context.Context, ch source.Chapter, archivePath string) (*Result, error) {
	if archivePath == "" {
		archivePath = filepath.Join(".", FullName(ch)+".cbz")
	}

	parent := filepath.Dir(archivePath)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(archivePath)+".pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	res, err := s.Download(ctx, ch, staging)
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	s.log.Info().Str("archive", archivePath).Msg("compressing chapter")
	if err := WriteArchive(staging, archivePath); err != nil {
		return nil, &ArchiveError{Path: archivePath, Dir: staging, Err: err}
	}

	if err := os.RemoveAll(staging); err != nil {
		s.log.Warn().Err(err).Str("dir", staging).Msg("failed to remove staging directory")
	}

	res.Path = archivePath
	return res, nil
}
