package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/db"
	"github.com/billmal071/mangadl/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View and manage download history",
	Long: `View and manage the chapters you have downloaded.

Examples:
  mangadl history              List recent chapters
  mangadl history list -n 50   List more chapters
  mangadl history pick         Pick a chapter and download it again
  mangadl history clear        Clear the history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showHistory(20)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return showHistory(limit)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the download history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearChapters(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		Successf("Download history cleared.")
		return nil
	},
}

var historyPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a chapter from history and download it again",
	RunE:  runHistoryPick,
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)")
	historyPickCmd.Flags().IntP("limit", "n", 100, "number of entries to pick from")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyPickCmd)
}

func showHistory(limit int) error {
	chapters, err := db.ListChapters(limit)
	if err != nil {
		return fmt.Errorf("failed to get download history: %w", err)
	}

	if len(chapters) == 0 {
		fmt.Println("No download history.")
		fmt.Println("\nChapters are recorded automatically when you download them.")
		return nil
	}

	fmt.Printf("Recent Chapters (%d):\n\n", len(chapters))

	for _, c := range chapters {
		fmt.Printf("  [%d] %s - %s  %s\n", c.ID, c.Manga, c.Label, tui.StatusText(c.Status))
		fmt.Printf("     %s\n", tui.DimStyle.Render(c.URL))
		if c.Path != "" {
			fmt.Printf("     Saved to: %s\n", c.Path)
		}
		if c.ErrorMessage != "" {
			fmt.Printf("     %s\n", tui.ErrorStyle.Render(firstLine(c.ErrorMessage)))
		}
		fmt.Printf("     %s\n\n", c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	return nil
}

func runHistoryPick(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	chapters, err := db.ListChapters(limit)
	if err != nil {
		return fmt.Errorf("failed to get download history: %w", err)
	}

	selected, err := tui.RunHistorySelector(chapters)
	if err != nil {
		return err
	}
	if selected == nil {
		return nil
	}

	return redownload(cmd, selected)
}

// redownload fetches a recorded chapter again into the same place
func redownload(cmd *cobra.Command, rec *db.Chapter) error {
	outDir := config.Get().Downloads.Path
	if rec.Path != "" {
		outDir = filepath.Dir(rec.Path)
	}

	svc, resolver := newService(nil, nil)
	items, err := svc.DownloadBatch(cmd.Context(), []string{rec.URL}, chapter.BatchOptions{
		OutDir:  outDir,
		Archive: rec.Archive,
		OnDone: func(item chapter.BatchItem) {
			reportChapter(resolver, item, rec.Archive)
		},
	})
	if err != nil {
		return err
	}
	return items[0].Err
}

func firstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}
