package security

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// XSS patterns
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`), // onclick, onload, etc.
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)<embed[^>]*>`),
		regexp.MustCompile(`(?i)<object[^>]*>`),
	}

	htmlTagsRegex   = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// SanitizeString removes potentially dangerous characters and patterns from input
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return removeControlCharacters(input)
}

// StripHTMLTags removes all HTML tags from input
func StripHTMLTags(input string) string {
	return htmlTagsRegex.ReplaceAllString(input, "")
}

// ContainsXSS checks if input contains potential XSS patterns
func ContainsXSS(input string) bool {
	for _, pattern := range xssPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// SanitizeInput cleans free text such as typed addresses. Punctuation common in
// street names ("&", "/", "'") is preserved; markup and script vectors are removed.
func SanitizeInput(input string, maxLength int) string {
	input = SanitizeString(input)
	for _, pattern := range xssPatterns {
		input = pattern.ReplaceAllString(input, "")
	}
	input = StripHTMLTags(input)
	input = NormalizeWhitespace(input)
	if maxLength > 0 {
		input = TruncateString(input, maxLength)
	}
	return input
}

// NormalizeWhitespace collapses runs of whitespace and trims the result
func NormalizeWhitespace(input string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(input, " "))
}

// TruncateString truncates a string to at most maxLength runes
func TruncateString(input string, maxLength int) string {
	runes := []rune(input)
	if len(runes) <= maxLength {
		return input
	}
	return string(runes[:maxLength])
}

// removeControlCharacters removes control characters except newlines and tabs
func removeControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
