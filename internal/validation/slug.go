package validation

import (
	"fmt"
	"regexp"
)

var slugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateSlug checks a category slug: latin letters, digits, hyphens and
// underscores, at most 64 characters.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > 64 {
		return fmt.Errorf("slug must not exceed 64 characters")
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug can only contain latin letters, digits, hyphens and underscores")
	}
	return nil
}
