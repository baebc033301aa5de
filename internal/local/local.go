// Package local holds bilingual text sets used by the advisor's canned replies.
package local

import "strings"

// Language identifies a supported reply language.
type Language string

const (
	English = Language("en")
	Hindi   = Language("hi")
	// Bilingual renders Hindi and English side by side.
	Bilingual = Language("")
)

// Separator joins the Hindi and English halves of a bilingual line.
const Separator = " • "

// TextSet is one piece of text with its translations.
type TextSet struct {
	translations map[Language]string
}

// New builds a set from its Hindi and English translations.
func New(hindi, english string) TextSet {
	return TextSet{
		translations: map[Language]string{
			Hindi:   hindi,
			English: english,
		},
	}
}

// Text renders the set in the given language. Bilingual and unknown
// languages get "hindi • english".
func (t TextSet) Text(language Language) string {
	if text, ok := t.translations[language]; ok && language != Bilingual {
		return text
	}
	return t.translations[Hindi] + Separator + t.translations[English]
}

// ParseLanguage maps a query value or Accept-Language header to a Language.
func ParseLanguage(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, ",;"); i >= 0 {
		s = s[:i]
	}
	switch {
	case s == "en" || strings.HasPrefix(s, "en-"):
		return English
	case s == "hi" || strings.HasPrefix(s, "hi-"):
		return Hindi
	default:
		return Bilingual
	}
}
