package question

import (
	"regexp"
	"strings"
)

const (
	Canonical = "de"
	English   = "en"
	Turkish   = "tr"
)

// Languages are the supported content languages; German is the source.
var Languages = []string{Canonical, English, Turkish}

func IsLanguage(code string) bool {
	for _, l := range Languages {
		if l == code {
			return true
		}
	}
	return false
}

// States are the sixteen federal state codes used as question number prefixes.
var States = []string{
	"BW", "BY", "BE", "BB", "HB", "HH", "HE", "MV",
	"NI", "NW", "RP", "SL", "SN", "ST", "SH", "TH",
}

func IsState(code string) bool {
	for _, s := range States {
		if s == code {
			return true
		}
	}
	return false
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the URL slug of a category: lowercase, apostrophes stripped,
// non-alphanumeric runs collapsed to one hyphen, hyphens trimmed.
func Slug(category string) string {
	s := strings.ToLower(category)
	s = strings.NewReplacer("'", "", "’", "").Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
