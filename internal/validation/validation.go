package validation

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6,16}$`)

// MaxMessageLength is the authoritative server-side cap on message
// content, in characters. Matches the composer's client-side limit.
func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 1000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 1000
	}
	return max
}

// ValidateMessageContent reports whether content is non-empty and
// within the length cap. Length is counted in runes so multibyte text
// gets the full budget.
func ValidateMessageContent(content string) bool {
	if content == "" {
		return false
	}
	return utf8.RuneCountInString(content) <= MaxMessageLength()
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateCode(code string) bool {
	return codeRe.MatchString(NormalizeCode(code))
}

func NormalizeDisplayName(name string) string {
	return strings.TrimSpace(name)
}

func ValidateDisplayName(name string) bool {
	name = NormalizeDisplayName(name)
	return name != "" && utf8.RuneCountInString(name) <= 64
}

func ValidateRoomName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= 100
}
