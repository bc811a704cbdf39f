package downloader

import (
	"mime"
	"strings"
)

var extensions = map[string]string{
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/webp":       "webp",
	"text/plain":       "txt",
	"text/csv":         "csv",
	"text/html":        "html",
	"application/pdf":  "pdf",
	"application/json": "json",
	"application/zip":  "zip",
}

// ExtensionFor maps a Content-Type header value to a file extension without
// the dot. Unrecognized types return "".
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return extensions[strings.ToLower(mediaType)]
}
