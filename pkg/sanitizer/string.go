package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reCollapseSpaces = regexp.MustCompile(`\s+`)
)

func trimAndCollapse(s string) string {
	s = strings.TrimSpace(s)
	return reCollapseSpaces.ReplaceAllString(s, " ")
}

// SanitizeName normalizes a person or class name: trimmed, inner whitespace
// collapsed.
func SanitizeName(input string) string {
	p := Pipeline{
		trimAndCollapse,
	}
	return p.Apply(input)
}

// SanitizeEmail lowercases and trims an email address.
func SanitizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
