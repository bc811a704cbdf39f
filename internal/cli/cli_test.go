package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/mangadl/internal/chapter"
	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/db"
)

func initTestConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, config.Init(""))
}

func parseDownloadFlags(t *testing.T, args ...string) (downloadOptions, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "download"}
	addDownloadFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return downloadOptionsFromFlags(cmd)
}

func TestDownloadOptionsDefaults(t *testing.T) {
	initTestConfig(t)

	opts, err := parseDownloadFlags(t)
	require.NoError(t, err)

	assert.Equal(t, config.Get().Downloads.Path, opts.outDir)
	assert.False(t, opts.archive)
	assert.Equal(t, 1, opts.concurrency)
	assert.Nil(t, opts.chapLimit)
	assert.Nil(t, opts.pageLimit)
}

func TestDownloadOptionsRateLimits(t *testing.T) {
	initTestConfig(t)

	opts, err := parseDownloadFlags(t, "--max-chap", "2", "--per-secs", "10", "--page-limit", "5", "--page-window", "500ms", "-o", "/tmp/manga")
	require.NoError(t, err)

	require.NotNil(t, opts.chapLimit)
	assert.Equal(t, 2, opts.chapLimit.Items)
	assert.Equal(t, 10*time.Second, opts.chapLimit.Window)
	require.NotNil(t, opts.pageLimit)
	assert.Equal(t, 5, opts.pageLimit.Items)
	assert.Equal(t, 500*time.Millisecond, opts.pageLimit.Window)
	assert.Equal(t, "/tmp/manga", opts.outDir)
}

func TestDownloadOptionsErrors(t *testing.T) {
	initTestConfig(t)

	_, err := parseDownloadFlags(t, "--max-chap", "2")
	assert.Error(t, err)

	_, err = parseDownloadFlags(t, "--per-secs", "2")
	assert.Error(t, err)

	_, err = parseDownloadFlags(t, "--cl", "0")
	assert.Error(t, err)
}

func TestDownloadOptionsArchiveFromConfig(t *testing.T) {
	initTestConfig(t)
	viper.Set("downloads.archive", true)

	opts, err := parseDownloadFlags(t)
	require.NoError(t, err)
	assert.True(t, opts.archive)

	opts, err = parseDownloadFlags(t, "--cbz=false")
	require.NoError(t, err)
	assert.False(t, opts.archive)

	opts, err = parseDownloadFlags(t, "--make-cbz")
	require.NoError(t, err)
	assert.False(t, opts.archive)
	assert.True(t, opts.bundle)
}

func TestReadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapters.txt")
	content := "# my list\nhttps://x/1\n\n  https://x/2  \n#https://x/skipped\nhttps://x/3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	urls, err := readURLs(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/1", "https://x/2", "https://x/3"}, urls)

	urls, err = readURLs(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/3", "https://x/2", "https://x/1"}, urls)

	_, err = readURLs(filepath.Join(t.TempDir(), "missing.txt"), false)
	assert.Error(t, err)
}

func TestVerifyChapterDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_001.jpg"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_002.jpg"), []byte("b"), 0644))

	assert.NoError(t, verifyChapter(&db.Chapter{Path: dir, Pages: 2}))
	assert.Error(t, verifyChapter(&db.Chapter{Path: dir, Pages: 3}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_003.jpg"), nil, 0644))
	assert.Error(t, verifyChapter(&db.Chapter{Path: dir, Pages: 3}))
}

func TestVerifyChapterArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_001.jpg"), []byte("a"), 0644))
	archive := filepath.Join(t.TempDir(), "c.cbz")
	require.NoError(t, chapter.WriteArchive(dir, archive))

	assert.NoError(t, verifyChapter(&db.Chapter{Path: archive, Archive: true, Pages: 1}))
	assert.Error(t, verifyChapter(&db.Chapter{Path: archive, Archive: true, Pages: 2}))
}

func TestVerifyChapterMissing(t *testing.T) {
	assert.ErrorIs(t, verifyChapter(&db.Chapter{}), errMissing)
	assert.ErrorIs(t, verifyChapter(&db.Chapter{Path: filepath.Join(t.TempDir(), "gone")}), errMissing)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "abc", truncateTitle("abc", 10))
	assert.Equal(t, "abcdefg...", truncateTitle("abcdefghijklmnop", 10))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "failed to download 1 of 2 pages", firstLine("failed to download 1 of 2 pages\n  https://x: boom"))
	assert.Equal(t, "single", firstLine("single"))
}
