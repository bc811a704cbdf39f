package chapter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/billmal071/mangadl/internal/source"
)

const maxNameBytes = 255

// reserved Windows device names, compared case-insensitively
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// FullName returns the sanitized "{title} - {label}" name used for the
// chapter directory and archive
func FullName(ch source.Chapter) string {
	return SanitizeName(ch.Manga() + " - " + ch.Label())
}

// SanitizeName removes characters that are invalid in file names on common
// platforms, trailing dots and spaces, and caps the length at 255 bytes
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
	}

	name = b.String()
	if name == "." || name == ".." {
		return ""
	}
	if base, _, _ := strings.Cut(name, "."); reservedNames[strings.ToLower(strings.TrimSpace(base))] {
		name = ""
	}

	name = strings.TrimRight(name, ". ")
	for len(name) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return strings.TrimRight(name, ". ")
}
