package model

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a PascalCase or camelCase name to snake_case.
func ToSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// LowerCamel lowercases the first rune, turning PascalCase into camelCase.
// Used for generated graph query and mutation names.
func LowerCamel(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// irregularPlurals covers the nouns the naive rules get wrong.
var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"foot":   "feet",
	"tooth":  "teeth",
	"goose":  "geese",
	"mouse":  "mice",
	"datum":  "data",
}

// Pluralize converts a singular snake_case name to its plural form.
func Pluralize(s string) string {
	if s == "" {
		return s
	}

	// Pluralize only the final segment of compound names.
	if idx := strings.LastIndex(s, "_"); idx >= 0 {
		return s[:idx+1] + Pluralize(s[idx+1:])
	}

	if p, ok := irregularPlurals[s]; ok {
		return p
	}

	switch {
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"),
		strings.HasSuffix(s, "z"), strings.HasSuffix(s, "ch"),
		strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !isVowel(rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
