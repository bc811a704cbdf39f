package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/db"
	"github.com/billmal071/mangadl/internal/downloader"
)

var errMissing = errors.New("file not found")

var verifyCmd = &cobra.Command{
	Use:   "verify [url]",
	Short: "Check downloaded chapters are complete",
	Long: `Check that a downloaded chapter still holds every page it was recorded
with and that no page is empty. Folders and .cbz archives are both checked.

Examples:
  mangadl verify https://mangadex.org/chapter/...   # Verify one chapter
  mangadl verify --all                             # Verify every completed chapter
  mangadl verify --all --fix                       # Download broken chapters again`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Bool("all", false, "verify all completed chapters")
	verifyCmd.Flags().Bool("fix", false, "download incomplete chapters again")
}

func runVerify(cmd *cobra.Command, args []string) error {
	verifyAll, _ := cmd.Flags().GetBool("all")
	autoFix, _ := cmd.Flags().GetBool("fix")

	var chapters []*db.Chapter
	switch {
	case verifyAll:
		all, err := db.ListChapters(0)
		if err != nil {
			return fmt.Errorf("failed to list chapters: %w", err)
		}
		for _, c := range all {
			if c.Status == db.StatusCompleted {
				chapters = append(chapters, c)
			}
		}
	case len(args) == 0:
		return fmt.Errorf("provide a chapter URL or use --all flag")
	default:
		rec, err := db.GetChapterByURL(args[0])
		if err != nil {
			return fmt.Errorf("failed to look up chapter: %w", err)
		}
		if rec == nil {
			return fmt.Errorf("chapter not found in history: %s", args[0])
		}
		if rec.Status != db.StatusCompleted {
			return fmt.Errorf("chapter is not completed (status: %s)", rec.Status)
		}
		chapters = []*db.Chapter{rec}
	}

	if len(chapters) == 0 {
		fmt.Println("No chapters to verify")
		return nil
	}

	fmt.Printf("Verifying %d chapter(s)...\n\n", len(chapters))

	verified := 0
	failed := 0
	missing := 0

	for _, rec := range chapters {
		fmt.Printf("🔍 [%d] %s - %s\n", rec.ID, rec.Manga, rec.Label)
		fmt.Printf("    Verifying: %s\n", rec.Path)

		err := verifyChapter(rec)
		switch {
		case err == nil:
			fmt.Printf("    ✓ %d pages verified\n\n", rec.Pages)
			verified++
			continue
		case errors.Is(err, errMissing):
			fmt.Printf("    ❌ File not found: %s\n", rec.Path)
			missing++
		default:
			fmt.Printf("    ❌ Verification failed: %v\n", err)
			failed++
		}

		if autoFix {
			fmt.Printf("    🔄 Downloading again...\n")
			if err := redownload(cmd, rec); err != nil {
				fmt.Printf("    ⚠️  Download failed: %v\n", err)
			}
		}
		fmt.Println()
	}

	// Summary
	fmt.Println("─────────────────────────────────")
	fmt.Printf("Verified: %d\n", verified)
	if failed > 0 {
		fmt.Printf("Failed: %d\n", failed)
	}
	if missing > 0 {
		fmt.Printf("Missing: %d\n", missing)
	}

	if (failed > 0 || missing > 0) && !autoFix {
		fmt.Println("\nTip: Use --fix flag to download broken chapters again")
	}

	return nil
}

// verifyChapter checks that the saved folder or archive of rec holds
// rec.Pages non-empty pages
func verifyChapter(rec *db.Chapter) error {
	if rec.Path == "" {
		return errMissing
	}
	info, err := os.Stat(rec.Path)
	if errors.Is(err, os.ErrNotExist) {
		return errMissing
	}
	if err != nil {
		return err
	}

	if info.IsDir() {
		return downloader.VerifyDirectory(rec.Path, rec.Pages)
	}

	files, err := chapter.ReadArchive(rec.Path)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if len(files) != rec.Pages {
		return fmt.Errorf("expected %d pages in archive, found %d", rec.Pages, len(files))
	}
	for name, data := range files {
		if len(data) == 0 {
			return fmt.Errorf("empty page in archive: %s", name)
		}
	}
	return nil
}
