package usecases

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"supportdesk/internal/entities"
)

// Input validation limits
const (
	MaxUsernameLength   = 64
	MinPasswordLength   = 8
	MaxTitleLength      = 256
	MaxSettingKeyLength = 64
	MaxSettingValLength = 50000 // Prompts and templates live in settings
	MaxMessageLength    = 10000
	MaxDocumentLength   = 200000
	MaxImportRows       = 5000
	DefaultPageSize     = 50
	MaxPageSize         = 500
)

var (
	slugPattern       = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	settingKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ValidSlug checks if a slug is safe (alphanumeric + underscore + hyphen)
func ValidSlug(s string) bool {
	return s != "" && len(s) <= MaxUsernameLength && slugPattern.MatchString(s)
}

// ValidSettingKey checks if a settings key is safe
func ValidSettingKey(s string) bool {
	return s != "" && len(s) <= MaxSettingKeyLength && settingKeyPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// ValidateLength checks if string is within bounds (in characters)
func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}

func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(SanitizeString(s))
	if !ValidateLength(s, 1, max) {
		return "", fmt.Errorf("%w: %s must be 1-%d characters", entities.ErrInvalidInput, field, max)
	}
	return s, nil
}

func optionalText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(SanitizeString(s))
	if !ValidateLength(s, 0, max) {
		return "", fmt.Errorf("%w: %s must be at most %d characters", entities.ErrInvalidInput, field, max)
	}
	return s, nil
}

// ValidHTTPURL accepts absolute http and https URLs.
func ValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// clampPage applies the default and maximum page size.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
