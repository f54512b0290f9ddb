package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugRunes    = regexp.MustCompile(`[^a-z0-9]+`)
	collapseHyphens = regexp.MustCompile(`-{2,}`)
)

// NormalizeSlug trims whitespace, lowercases the value, and ensures it matches
// the canonical URL-safe slug pattern required for public identifiers.
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("slug is required")
	}

	normalized := strings.ToLower(trimmed)
	if !slugPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid slug %q: must match ^[a-z0-9]+(?:-[a-z0-9]+)*$", input)
	}

	return normalized, nil
}

// SlugFromName derives a slug from a display name, e.g. for self-service
// signup where the caller only supplies the business name.
func SlugFromName(name string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	replaced := nonSlugRunes.ReplaceAllString(lowered, "-")
	collapsed := collapseHyphens.ReplaceAllString(replaced, "-")
	candidate := strings.Trim(collapsed, "-")
	if candidate == "" {
		return "", fmt.Errorf("cannot derive slug from %q", name)
	}
	return candidate, nil
}
