package repository

import (
	"strings"
	"unicode"
)

// SnakeCase converts a Go identifier to the snake_case form used for entity
// names, so BlogPost becomes blog_post. Punctuation from reflected type names
// (pointers, generic brackets, package dots) collapses into single underscores.
func SnakeCase(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	underscore := func() bool {
		if b.Len() == 0 {
			return false
		}
		str := b.String()
		return str[len(str)-1] == '_'
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 && !underscore() {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))

		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)

		default:
			if b.Len() > 0 && !underscore() {
				b.WriteByte('_')
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
