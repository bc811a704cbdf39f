package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/db"
	"github.com/billmal071/mangadl/internal/downloader"
	"github.com/billmal071/mangadl/internal/logging"
	"github.com/billmal071/mangadl/internal/source"
)

var (
	cfgFile string
	verbose bool
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "mangadl",
	Short: "Download manga chapters",
	Long: `mangadl downloads manga chapters from supported sites into a folder or a
.cbz archive.

Examples:
  mangadl download https://mangadex.org/chapter/...        Download one chapter
  mangadl download --cbz -o ~/Manga https://...             Download as .cbz
  mangadl download -f chapters.txt --continue               Download a list of chapters
  mangadl info https://...                                  Show the chapter name
  mangadl history pick                                      Download a chapter again
  mangadl serve                                             Start the HTTP server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		cfg := config.Get()
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level, cfg.Log.Format, os.Stderr)

		// Initialize database
		if err := db.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.Close()
	},
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/mangadl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// newService builds a chapter service from the config. pageLimit overrides
// the configured page rate limit when not nil; progress, when set, is
// called after every page fetch.
func newService(pageLimit *downloader.RateLimit, progress func(downloader.Outcome)) (*chapter.Service, *source.Resolver) {
	cfg := config.Get()

	if pageLimit == nil {
		pageLimit = downloader.NewRateLimit(cfg.Downloads.RateLimit.Items, cfg.Downloads.RateLimit.Window)
	}

	resolver := source.NewDefaultResolver(logger)
	mgr := downloader.NewManager(logger)
	if progress != nil {
		mgr.OnProgress(progress)
	}

	return chapter.NewService(resolver, mgr, chapter.Options{
		RateLimit:        pageLimit,
		RetryBackoff:     cfg.Downloads.RetryBackoff,
		RetryRateLimited: cfg.Downloads.RetryRateLimited,
	}, logger), resolver
}

// Printf prints if verbose mode is enabled
func Printf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// Errorf prints an error message to stderr
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Successf prints a success message
func Successf(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}
