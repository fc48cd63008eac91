// Package validate provides centralized input validation and sanitization utilities
// for the Campus Cart API. It includes protection against SQL injection, XSS, SSRF,
// and other common web vulnerabilities.
package validate

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrSQLKeyword        = errors.New("string contains SQL keywords")
	ErrEmpty             = errors.New("string is empty")
)

// sqlKeywordPattern matches SQL keywords as standalone words, so legitimate
// text like "The Executive" (contains EXEC) passes while "DROP it" does not.
// This is a basic defense layer; parameterized queries are the primary defense
var sqlKeywordPattern = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|EXEC|EXECUTE|UNION|JOIN|WHERE|FROM)\b`)

// sqlSymbolPatterns are injection markers checked as plain substrings.
var sqlSymbolPatterns = []string{
	"--", "/*", "*/", ";--", "xp_", "sp_",
}

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength        int              // Minimum length (0 = no minimum)
	MaxLength        int              // Maximum length (0 = no maximum)
	AllowedPattern   *regexp.Regexp   // Optional regex pattern for allowed characters
	DisallowedWords  []string         // Optional list of disallowed words (case-insensitive)
	CheckSQLKeywords bool             // Whether to check for SQL keywords
	AllowEmpty       bool             // Whether empty strings are allowed
	TrimSpace        bool             // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	// Optionally trim whitespace
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	// Check if empty
	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Get actual character count (not byte count)
	length := utf8.RuneCountInString(s)

	// Check minimum length
	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	// Check maximum length
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	// Check allowed pattern
	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	// Check SQL keywords if enabled
	if constraints.CheckSQLKeywords {
		if err := checkSQLKeywords(s); err != nil {
			return "", err
		}
	}

	// Check disallowed words
	if len(constraints.DisallowedWords) > 0 {
		upper := strings.ToUpper(s)
		for _, word := range constraints.DisallowedWords {
			if strings.Contains(upper, strings.ToUpper(word)) {
				return "", fmt.Errorf("string contains disallowed word: %q", word)
			}
		}
	}

	return s, nil
}

// checkSQLKeywords checks if the string contains common SQL keywords.
// This is a basic heuristic check; parameterized queries are the real defense.
func checkSQLKeywords(s string) error {
	if match := sqlKeywordPattern.FindString(s); match != "" {
		return fmt.Errorf("%w: contains %q", ErrSQLKeyword, match)
	}
	lower := strings.ToLower(s)
	for _, pattern := range sqlSymbolPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: contains %q", ErrSQLKeyword, pattern)
		}
	}
	return nil
}

// SanitizeHTML escapes HTML special characters to prevent XSS attacks.
// This should be called on all user-generated text that will be displayed in HTML.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
// Returns the sanitized string and an error if validation fails.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// ListingTitle validates a listing title:
// - 1-140 characters
//
// SQL keyword checking is intentionally off: legitimate titles like
// "Drop-leaf kitchen table" would trip a substring match.
func ListingTitle(title string) (string, error) {
	return SanitizeString(title, StringConstraints{
		MinLength:        1,
		MaxLength:        140,
		CheckSQLKeywords: false,
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// Category validates a listing category slug:
// - 1-50 characters
// - Lowercase letters, numbers, dash, underscore only
func Category(category string) (string, error) {
	pattern := regexp.MustCompile(`^[a-z0-9_\-]+$`)
	return SanitizeString(category, StringConstraints{
		MinLength:      1,
		MaxLength:      50,
		AllowedPattern: pattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}

// MessageBody validates a conversation message body:
// - Required (not empty)
// - Max 2000 characters
func MessageBody(body string) (string, error) {
	return SanitizeString(body, StringConstraints{
		MinLength:        1,
		MaxLength:        2000,
		CheckSQLKeywords: false, // Allow more freedom in message text
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// Headline validates a roommate profile headline:
// - 1-120 characters
func Headline(headline string) (string, error) {
	return SanitizeString(headline, StringConstraints{
		MinLength:        1,
		MaxLength:        120,
		CheckSQLKeywords: false,
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// ReviewComment validates a seller review comment:
// - Optional (can be empty)
// - Max 1000 characters
func ReviewComment(comment string) (string, error) {
	return SanitizeString(comment, StringConstraints{
		MinLength:        0,
		MaxLength:        1000,
		CheckSQLKeywords: false,
		AllowEmpty:       true,
		TrimSpace:        true,
	})
}

// ReportReason validates a moderation report reason:
// - Required (not empty)
// - Max 500 characters
func ReportReason(reason string) (string, error) {
	return SanitizeString(reason, StringConstraints{
		MinLength:        1,
		MaxLength:        500,
		CheckSQLKeywords: false,
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// Description validates a description field:
// - Optional (can be empty)
// - Max 5000 characters
func Description(desc string) (string, error) {
	return SanitizeString(desc, StringConstraints{
		MinLength:        0,
		MaxLength:        5000,
		CheckSQLKeywords: false, // Allow more freedom in descriptions
		AllowEmpty:       true,
		TrimSpace:        true,
	})
}
