package service

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// normalizeJurisdiction uppercases ISO-style jurisdiction codes while leaving
// free-text jurisdictions alone.
func normalizeJurisdiction(value string) string {
	value = sanitizeString(value)
	if len(value) <= 3 {
		return strings.ToUpper(value)
	}
	return value
}

// normalizeNodeType lowercases and trims a node type token.
func normalizeNodeType(value string) string {
	return strings.ToLower(sanitizeString(value))
}
