package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxLogStringLength is the maximum number of characters of a user-provided string kept in logs
const MaxLogStringLength = 200

// Anything that is not a letter, number, punctuation, symbol or space
var unprintable = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{S}\p{Z}\p{M}]`)

// SanitizeLogString sanitizes a user-controlled string for safe logging.
// Control characters become spaces and long strings are cut on a rune boundary,
// so Arabic room and group names are never split mid character.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	if utf8.RuneCountInString(input) > MaxLogStringLength {
		runes := []rune(input)
		input = string(runes[:MaxLogStringLength]) + "... (truncated)"
	}

	// Pre-process CRLF to avoid double spaces
	input = strings.ReplaceAll(input, "\r\n", "\n")

	sanitized := strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	return unprintable.ReplaceAllString(sanitized, "")
}

// SafeString is zap.String with the value passed through SanitizeLogString
func SafeString(key, value string) zap.Field {
	return zap.String(key, SanitizeLogString(value))
}
