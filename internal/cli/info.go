package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/db"
	"github.com/billmal071/mangadl/internal/source"
	"github.com/billmal071/mangadl/internal/tui"
)

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show the name of a chapter",
	Long: `Resolve a chapter URL and print its "{title} - {label}" name, the same
name used for the download folder or archive.

Resolved chapters are cached for 24 hours.

Examples:
  mangadl info https://mangadex.org/chapter/...
  mangadl info --details https://truyenqqto.com/...`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("details", false, "show site, title, label and page count")
	infoCmd.Flags().Bool("no-cache", false, "always fetch the chapter page")
}

func runInfo(cmd *cobra.Command, args []string) error {
	rawURL := strings.TrimSpace(args[0])
	details, _ := cmd.Flags().GetBool("details")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	info, err := chapterInfo(cmd, rawURL, noCache)
	if err != nil {
		return err
	}

	fmt.Println(chapter.SanitizeName(info.Manga + " - " + info.Label))
	if details {
		fmt.Println()
		fmt.Printf("  Site:   %s\n", tui.SiteStyle.Render(info.Site))
		fmt.Printf("  Title:  %s\n", info.Manga)
		fmt.Printf("  Label:  %s\n", info.Label)
		fmt.Printf("  Pages:  %d\n", info.Pages)
	}
	return nil
}

// chapterInfo returns chapter metadata from the cache, resolving and caching
// it on a miss
func chapterInfo(cmd *cobra.Command, rawURL string, noCache bool) (*db.CachedChapter, error) {
	if !noCache {
		cached, err := db.GetCachedChapter(rawURL)
		if err != nil {
			logger.Warn().Err(err).Msg("cache lookup failed")
		}
		if cached != nil {
			Printf("Using cached chapter info\n")
			return cached, nil
		}
	}

	svc, resolver := newService(nil, nil)
	ch, err := svc.Resolve(cmd.Context(), rawURL)
	if err != nil {
		return nil, err
	}

	info := &db.CachedChapter{
		URL:   rawURL,
		Site:  siteName(resolver, rawURL),
		Manga: ch.Manga(),
		Label: ch.Label(),
		Pages: len(ch.Pages()),
	}
	if err := db.SaveCachedChapter(info, db.DefaultCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("failed to cache chapter info")
	}
	return info, nil
}

func siteName(resolver *source.Resolver, rawURL string) string {
	site, _, err := resolver.Lookup(rawURL)
	if err != nil {
		return ""
	}
	return site.Name()
}
