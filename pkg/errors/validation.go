package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateFactoryID validates a factory identifier before it is used in a
// node id, a REST path or a store key.
//
// The rules are conservative:
//   - No empty ids
//   - No control characters or whitespace
//   - No path separators, query characters or traversal sequences
//   - Maximum length of 256 characters
func ValidateFactoryID(id string) error {
	return validateIdentifier("factory id", id)
}

// ValidateShopFloorID validates a shop floor identifier.
func ValidateShopFloorID(id string) error {
	return validateIdentifier("shop floor id", id)
}

// ValidateAssetID validates an asset identifier.
func ValidateAssetID(id string) error {
	return validateIdentifier("asset id", id)
}

func validateIdentifier(what, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", what)
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "%s too long (max 256 characters)", what)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid characters", what)
		}
	}

	dangerousPatterns := []string{
		"..",
		"/",
		"\\",
		"?",
		"#",
		"&",
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "%s contains invalid characters: %q", what, pattern)
		}
	}

	return nil
}

// relationNameRegex matches capability names such as "hasFilter".
var relationNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// ValidateRelationName validates a relation capability name. Names become
// part of relation node ids, which are split on '_', so underscores are
// rejected.
func ValidateRelationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "relation name cannot be empty")
	}
	if !relationNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid relation name: %q", name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
