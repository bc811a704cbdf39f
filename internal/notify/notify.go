package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/billmal071/mangadl/internal/config"
)

// Notification types
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

const appName = "mangadl"

// run executes a notifier command; replaced in tests
var run = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Send sends a desktop notification if enabled in config
func Send(title, message, notifyType string) {
	if !config.Get().Notifications.Enabled {
		return
	}

	// Send notification in background
	go sendNotification(runtime.GOOS, title, message, notifyType)
}

// ChapterComplete notifies that a chapter finished downloading
func ChapterComplete(name string, pages int) {
	Send("Chapter Downloaded", fmt.Sprintf("%s (%d pages)", name, pages), TypeSuccess)
}

// ChapterFailed notifies that a chapter could not be downloaded. Only the
// first line of reason is shown.
func ChapterFailed(name, reason string) {
	msg := name
	if first, _, _ := strings.Cut(reason, "\n"); first != "" {
		msg += ": " + first
	}
	Send("Chapter Failed", msg, TypeError)
}

// BatchComplete notifies that a batch of chapters finished
func BatchComplete(completed, failed int) {
	var msg string
	if failed == 0 {
		msg = fmt.Sprintf("All %d chapters downloaded", completed)
	} else {
		msg = fmt.Sprintf("%d downloaded, %d failed", completed, failed)
	}
	Send("Batch Complete", msg, TypeInfo)
}

func sendNotification(goos, title, message, notifyType string) {
	name, args := command(goos, title, message, notifyType)
	if name == "" {
		return
	}
	run(name, args...)
}

func command(goos, title, message, notifyType string) (string, []string) {
	switch goos {
	case "linux":
		icon := "dialog-information"
		switch notifyType {
		case TypeSuccess:
			icon = "dialog-ok"
		case TypeError:
			icon = "dialog-error"
		}
		return "notify-send", []string{"-i", icon, "-a", appName, title, message}
	case "darwin":
		script := `display notification "` + escapeAppleScript(message) + `" with title "` + escapeAppleScript(title) + `"`
		return "osascript", []string{"-e", script}
	case "windows":
		script := `
	[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
	[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
	$template = '<toast><visual><binding template="ToastText02"><text id="1">` + escapeXML(title) + `</text><text id="2">` + escapeXML(message) + `</text></binding></visual></toast>'
	$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
	$xml.LoadXml($template)
	$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
	[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("` + appName + `").Show($toast)
	`
		return "powershell", []string{"-Command", script}
	}
	return "", nil
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(s)
}

// escapes XML special characters, including single quotes which delimit
// the PowerShell template
var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
