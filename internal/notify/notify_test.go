package notify

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/mangadl/internal/config"
)

type call struct {
	name string
	args []string
}

func stubRun(t *testing.T) chan call {
	t.Helper()
	calls := make(chan call, 4)
	orig := run
	run = func(name string, args ...string) error {
		calls <- call{name: name, args: args}
		return nil
	}
	t.Cleanup(func() { run = orig })
	return calls
}

func initConfig(t *testing.T, enabled bool) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, config.Init(""))
	viper.Set("notifications.enabled", enabled)
}

func TestSendDisabled(t *testing.T) {
	initConfig(t, false)
	calls := stubRun(t)

	ChapterComplete("Test - chap 1", 10)

	select {
	case c := <-calls:
		t.Fatalf("unexpected notification: %v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChapterFailedFirstLine(t *testing.T) {
	initConfig(t, true)
	calls := stubRun(t)

	ChapterFailed("Test - chap 1", "failed to download 2 of 5 pages\n  https://x/1.jpg: timeout")

	select {
	case c := <-calls:
		require.NotEmpty(t, c.args)
		msg := c.args[len(c.args)-1]
		if c.name == "notify-send" {
			assert.Equal(t, "Test - chap 1: failed to download 2 of 5 pages", msg)
		}
	case <-time.After(time.Second):
		// no notifier on this platform
	}
}

func TestCommand(t *testing.T) {
	name, args := command("linux", "Chapter Downloaded", "M - 1", TypeSuccess)
	assert.Equal(t, "notify-send", name)
	assert.Equal(t, []string{"-i", "dialog-ok", "-a", "mangadl", "Chapter Downloaded", "M - 1"}, args)

	name, args = command("darwin", "T", `say "hi"`, TypeInfo)
	assert.Equal(t, "osascript", name)
	assert.Equal(t, `display notification "say \"hi\"" with title "T"`, args[1])

	name, args = command("windows", "T", "a<b", TypeError)
	assert.Equal(t, "powershell", name)
	assert.Contains(t, args[1], "a&lt;b")

	name, _ = command("plan9", "T", "m", TypeInfo)
	assert.Empty(t, name)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&lt;a href=&quot;x&quot;&gt;Tom &amp; Jerry&apos;s&lt;/a&gt;", escapeXML(`<a href="x">Tom & Jerry's</a>`))
}
