package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/db"
	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/notify"
	"github.com/billmal071/mangadl/internal/source"
	"github.com/billmal071/mangadl/internal/tui"
)

const bundleName = "manga.cbz"

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a chapter or a list of chapters",
	Long: `Download a chapter into a folder named "{title} - {label}", or into a .cbz
archive with --cbz.

A list of chapter URLs can be read from a file with -f, one URL per line.
Blank lines and lines starting with # are skipped.

Examples:
  mangadl download https://mangadex.org/chapter/...
  mangadl download --cbz -o ~/Manga https://blogtruyenmoi.com/c123/...
  mangadl download -f chapters.txt --continue --max-chap 2 --per-secs 10
  mangadl download -f chapters.txt --make-cbz`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	addDownloadFlags(downloadCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output directory (default: downloads.path)")
	cmd.Flags().Bool("cbz", false, "pack each chapter into a .cbz archive")
	cmd.Flags().StringP("file", "f", "", "read chapter URLs from a file")
	cmd.Flags().Bool("continue", false, "keep downloading the list after a failed chapter")
	cmd.Flags().Bool("rev", false, "download the list in reverse order")
	cmd.Flags().Int("cl", 1, "number of chapters downloaded at once")
	cmd.Flags().Int("max-chap", 0, "chapters per --per-secs window")
	cmd.Flags().Int("per-secs", 0, "rate limit window in seconds, used with --max-chap")
	cmd.Flags().Bool("make-cbz", false, "pack every chapter of the list into one "+bundleName)
	cmd.Flags().Int("page-limit", 0, "pages per --page-window (default: downloads.rate_limit.items)")
	cmd.Flags().Duration("page-window", time.Second, "page rate limit window, used with --page-limit")

	cmd.MarkFlagsMutuallyExclusive("cbz", "make-cbz")
}

type downloadOptions struct {
	outDir      string
	archive     bool
	bundle      bool
	file        string
	reverse     bool
	keepGoing   bool
	concurrency int
	chapLimit   *downloader.RateLimit
	pageLimit   *downloader.RateLimit
}

func downloadOptionsFromFlags(cmd *cobra.Command) (downloadOptions, error) {
	flags := cmd.Flags()
	var opts downloadOptions

	opts.outDir, _ = flags.GetString("output")
	opts.archive, _ = flags.GetBool("cbz")
	opts.bundle, _ = flags.GetBool("make-cbz")
	opts.file, _ = flags.GetString("file")
	opts.reverse, _ = flags.GetBool("rev")
	opts.keepGoing, _ = flags.GetBool("continue")
	opts.concurrency, _ = flags.GetInt("cl")

	if opts.concurrency < 1 {
		return opts, fmt.Errorf("--cl must be at least 1")
	}

	maxChap, _ := flags.GetInt("max-chap")
	perSecs, _ := flags.GetInt("per-secs")
	if (maxChap > 0) != (perSecs > 0) {
		return opts, fmt.Errorf("--max-chap and --per-secs must be used together")
	}
	opts.chapLimit = downloader.NewRateLimit(maxChap, time.Duration(perSecs)*time.Second)

	pageLimit, _ := flags.GetInt("page-limit")
	pageWindow, _ := flags.GetDuration("page-window")
	opts.pageLimit = downloader.NewRateLimit(pageLimit, pageWindow)

	if opts.outDir == "" {
		opts.outDir = config.Get().Downloads.Path
	}
	if !flags.Changed("cbz") && !opts.bundle {
		opts.archive = config.Get().Downloads.Archive
	}
	return opts, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts, err := downloadOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	var urls []string
	switch {
	case len(args) == 1 && opts.file != "":
		return fmt.Errorf("give either a URL or --file, not both")
	case len(args) == 1:
		urls = []string{args[0]}
	case opts.file != "":
		urls, err = readURLs(opts.file, opts.reverse)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("a chapter URL or --file is required")
	}
	if len(urls) == 0 {
		fmt.Println("No chapter URLs to download.")
		return nil
	}

	progress := newPageProgress(opts.concurrency == 1 && isatty.IsTerminal(os.Stdout.Fd()))
	if progress.enabled && !verbose && logger.GetLevel() < zerolog.WarnLevel {
		// keep the progress bar readable
		logger = logger.Level(zerolog.WarnLevel)
	}

	svc, resolver := newService(opts.pageLimit, progress.add)

	var completed, failed int
	var mu sync.Mutex
	items, batchErr := svc.DownloadBatch(cmd.Context(), urls, chapter.BatchOptions{
		OutDir:          opts.outDir,
		Archive:         opts.archive,
		Concurrency:     opts.concurrency,
		RateLimit:       opts.chapLimit,
		ContinueOnError: opts.keepGoing,
		OnResolved:      progress.start,
		OnDone: func(item chapter.BatchItem) {
			progress.finish()

			mu.Lock()
			defer mu.Unlock()
			if item.Err != nil {
				failed++
			} else {
				completed++
			}
			reportChapter(resolver, item, opts.archive)
		},
	})

	if opts.bundle {
		if err := bundleChapters(items, filepath.Join(opts.outDir, bundleName)); err != nil {
			return err
		}
	}

	if len(urls) > 1 {
		notify.BatchComplete(completed, failed)
		fmt.Printf("\nDownloaded %d of %d chapters\n", completed, len(urls))
	}

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d chapters failed", failed, len(urls))
	}
	return nil
}

// reportChapter prints, records and notifies the outcome of one chapter
func reportChapter(resolver *source.Resolver, item chapter.BatchItem, archive bool) {
	name := item.URL
	if item.Chapter != nil {
		name = chapter.FullName(item.Chapter)
	}

	if item.Err != nil {
		if errors.Is(item.Err, context.Canceled) {
			return
		}
		Errorf("%s: %v", name, item.Err)
		notify.ChapterFailed(name, item.Err.Error())
	} else {
		size := ""
		if info, err := os.Stat(item.Result.Path); err == nil && !info.IsDir() {
			size = " (" + tui.FormatSize(info.Size()) + ")"
		}
		Successf("Downloaded: %s%s", item.Result.Path, size)
		notify.ChapterComplete(name, item.Result.Pages)
	}

	if item.Chapter == nil {
		return
	}

	rec := &db.Chapter{
		URL:     item.URL,
		Site:    siteName(resolver, item.URL),
		Manga:   item.Chapter.Manga(),
		Label:   item.Chapter.Label(),
		Archive: archive,
		Pages:   len(item.Chapter.Pages()),
		Status:  db.StatusCompleted,
	}
	if item.Err != nil {
		rec.Status = db.StatusFailed
		rec.ErrorMessage = item.Err.Error()
	} else {
		rec.Path = item.Result.Path
	}
	if err := db.RecordChapter(rec); err != nil {
		logger.Warn().Err(err).Str("url", item.URL).Msg("failed to record chapter")
	}
}

// bundleChapters packs the downloaded chapter directories into one archive
// and removes them once it is written
func bundleChapters(items []chapter.BatchItem, path string) error {
	var dirs []string
	for _, item := range items {
		if item.Err == nil && item.Result != nil {
			dirs = append(dirs, item.Result.Path)
		}
	}
	if len(dirs) == 0 {
		return nil
	}

	fmt.Println("Making cbz...")
	if err := chapter.WriteBundle(dirs, path); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("failed to remove chapter directory")
		}
	}
	Successf("Created: %s", path)
	return nil
}

// readURLs reads chapter URLs from path, one per line, skipping blank lines
// and # comments
func readURLs(path string, reverse bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}

	if reverse {
		slices.Reverse(urls)
	}
	return urls, nil
}

// pageProgress shows a progress bar over the pages of the chapter being
// downloaded. It is a no-op when disabled.
type pageProgress struct {
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newPageProgress(enabled bool) *pageProgress {
	return &pageProgress{enabled: enabled}
}

func (p *pageProgress) start(ch source.Chapter) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(
		len(ch.Pages()),
		progressbar.OptionSetDescription(chapter.FullName(ch)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// add counts successful fetches only, so a page that succeeds on the retry
// pass is counted once
func (p *pageProgress) add(o downloader.Outcome) {
	if !p.enabled || !o.OK() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *pageProgress) finish() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Close()
		fmt.Println()
		p.bar = nil
	}
}
