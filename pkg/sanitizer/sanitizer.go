package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxFreeTextLength = 500

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(limit int) Strategy {
	return func(s string) string {
		if utf8.RuneCountInString(s) <= limit {
			return s
		}
		return string([]rune(s)[:limit])
	}
}

// SanitizeFreeText cleans reasons, annotations and references before they are
// appended to a booking's event list.
func SanitizeFreeText(input string) string {
	p := Pipeline{
		dropControl,
		TrimAndNormalize,
		truncate(MaxFreeTextLength),
	}
	return p.Apply(input)
}

// NameSearchPattern turns a guest name query into a case-insensitive regular
// expression matching the query's words in order with anything in between, so
// "juan cruz" finds "Juan Dela Cruz". Returns "" for queries shorter than two
// characters.
func NameSearchPattern(query string) string {
	query = NormalizeName(dropControl(query))
	if utf8.RuneCountInString(query) < 2 {
		return ""
	}

	words := strings.Fields(query)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return "(?i)" + strings.Join(quoted, ".*")
}
