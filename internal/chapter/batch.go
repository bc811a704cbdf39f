package chapter

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/source"
)

// BatchOptions control DownloadBatch
type BatchOptions struct {
	// OutDir holds the chapter directories or archives; empty for the
	// working directory
	OutDir string
	// Archive packs every chapter into a .cbz
	Archive bool
	// Concurrency is the number of chapters downloaded at once, at least 1
	Concurrency int
	// RateLimit spaces chapters the same way pages are spaced within one
	RateLimit *downloader.RateLimit
	// ContinueOnError keeps going after a failed chapter
	ContinueOnError bool
	// OnResolved is called once a chapter is resolved, before its pages
	// are fetched
	OnResolved func(ch source.Chapter)
	// OnDone is called after every chapter, successful or not
	OnDone func(item BatchItem)
}

// BatchItem is the result of one chapter of a batch
type BatchItem struct {
	URL     string
	Chapter source.Chapter // nil when the URL could not be resolved
	Result  *Result
	Err     error
}

// DownloadBatch downloads every URL and returns one item per URL in input
// order. Without ContinueOnError the first failure stops the batch and is
// returned; chapters not started are left with a nil Result and Err.
func (s *Service) DownloadBatch(ctx context.Context, urls []string, opts BatchOptions) ([]BatchItem, error) {
	items := make([]BatchItem, len(urls))
	for i, u := range urls {
		items[i].URL = u
	}
	if len(urls) == 0 {
		return items, nil
	}

	size := opts.RateLimit.ChunkSize(len(urls))

	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))

		if start > 0 {
			if err := downloader.Wait(ctx, opts.RateLimit.Window); err != nil {
				return items, err
			}
		}

		if err := s.batchChunk(ctx, items[start:end], opts); err != nil {
			return items, err
		}
	}
	return items, nil
}

func (s *Service) batchChunk(ctx context.Context, items []BatchItem, opts BatchOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ch, res, err := s.batchOne(gctx, items[i].URL, opts)
			items[i].Chapter, items[i].Result, items[i].Err = ch, res, err
			if err != nil {
				s.log.Error().Err(err).Str("url", items[i].URL).Msg("chapter failed")
			}
			if opts.OnDone != nil {
				opts.OnDone(items[i])
			}

			if err != nil && !opts.ContinueOnError {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) batchOne(ctx context.Context, rawURL string, opts BatchOptions) (source.Chapter, *Result, error) {
	ch, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	if opts.OnResolved != nil {
		opts.OnResolved(ch)
	}

	if opts.Archive {
		var path string
		if opts.OutDir != "" {
			path = filepath.Join(opts.OutDir, FullName(ch)+".cbz")
		}
		res, err := s.DownloadArchive(ctx, ch, path)
		return ch, res, err
	}

	var dest string
	if opts.OutDir != "" {
		dest = filepath.Join(opts.OutDir, FullName(ch))
	}
	res, err := s.Download(ctx, ch, dest)
	return ch, res, err
}
