package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/db"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the chapter info cache",
	Long: `Manage the cache of resolved chapter names used by 'mangadl info'.

Examples:
  mangadl cache stats    # Show cache statistics
  mangadl cache clean    # Remove expired entries
  mangadl cache clear    # Clear all cached chapters`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		total, expired, err := db.GetCacheStats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("Chapter Cache Statistics")
		fmt.Println("─────────────────────────")
		fmt.Printf("Total cached chapters: %d\n", total)
		fmt.Printf("Expired entries: %d\n", expired)
		fmt.Printf("Valid entries: %d\n", total-expired)
		fmt.Printf("Cache TTL: %v\n", db.DefaultCacheTTL)

		if expired > 0 {
			fmt.Println("\nTip: Run 'mangadl cache clean' to remove expired entries")
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		Successf("Cache cleared")
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := db.CleanExpiredCache()
		if err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}
		Successf("Removed %d expired entries", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}
