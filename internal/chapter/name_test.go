package chapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "One Piece - chap 1", "One Piece - chap 1"},
		{"separators", `a/b\c`, "abc"},
		{"reserved characters", `Who? "Me": <yes>|*`, "Who Me yes"},
		{"control characters", "tab\there\x00", "tabhere"},
		{"trailing dots and spaces", "chap 10. . ", "chap 10"},
		{"reserved windows name", "CON", ""},
		{"reserved windows name any case", "lpt1", ""},
		{"reserved name with extension", "nul.txt", ""},
		{"unicode kept", "Tôi là ai - chương 1", "Tôi là ai - chương 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}
}

func TestSanitizeNameLength(t *testing.T) {
	got := SanitizeName(strings.Repeat("ạ", 200))
	assert.LessOrEqual(t, len(got), maxNameBytes)
	assert.True(t, strings.HasPrefix(strings.Repeat("ạ", 200), got))
}

func TestFullName(t *testing.T) {
	ch := &testChapter{manga: "Dr. Stone", label: "chap 3: Fire?"}
	assert.Equal(t, "Dr. Stone - chap 3 Fire", FullName(ch))
}
