package translation

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName expands a BCP 47 code ("ko", "pt-BR", "zh-Hant") to its
// English name. Anything that is not a known code is returned trimmed and
// unchanged, so "Korean" stays "Korean".
func LanguageName(s string) string {
	s = strings.TrimSpace(s)
	if !looksLikeCode(s) {
		return s
	}
	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return s
}

// LanguageCode returns the base ISO 639-1 code for a language code or an
// English language name, or "" when unknown.
func LanguageCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if looksLikeCode(s) {
		if tag, err := language.Parse(s); err == nil {
			base, _ := tag.Base()
			return base.String()
		}
		return ""
	}
	for _, tag := range display.Supported.Tags() {
		if strings.EqualFold(display.English.Tags().Name(tag), s) {
			base, _ := tag.Base()
			return base.String()
		}
	}
	return ""
}

func looksLikeCode(s string) bool {
	primary := s
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		primary = s[:i]
	}
	if len(primary) < 2 || len(primary) > 3 {
		return false
	}
	for _, r := range primary {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
