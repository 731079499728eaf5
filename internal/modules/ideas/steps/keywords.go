package steps

import (
	"strings"
	"unicode"
	"unicode/utf8"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

type field int

const (
	fieldSector field = iota
	fieldTags
	fieldBusinessModel
	fieldSummary
	fieldTargetUser
	fieldTitle
)

// haystack lowercases and joins the chosen fields of an idea.
func haystack(idea *types.Idea, fields ...field) string {
	if idea == nil {
		return ""
	}
	parts := make([]string, 0, len(fields)+len(idea.Tags))
	for _, f := range fields {
		switch f {
		case fieldSector:
			parts = append(parts, idea.Sector)
		case fieldTags:
			parts = append(parts, idea.Tags...)
		case fieldBusinessModel:
			parts = append(parts, idea.BusinessModel)
		case fieldSummary:
			parts = append(parts, idea.Summary3)
		case fieldTargetUser:
			parts = append(parts, idea.TargetUser)
		case fieldTitle:
			parts = append(parts, idea.Title)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// containsAny reports whether hay holds any keyword. Short ASCII keywords
// ("ai", "ml", "hr") must match a whole token so "retail" is not AI. Tokens
// also break where ASCII meets Hangul, so "ai헬스케어" holds "ai".
func containsAny(hay string, keywords []string) bool {
	if hay == "" {
		return false
	}
	var tokens map[string]struct{}
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if isShortASCII(kw) {
			if tokens == nil {
				tokens = tokenSet(hay)
			}
			if _, ok := tokens[kw]; ok {
				return true
			}
			continue
		}
		if strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}

func isShortASCII(s string) bool {
	if len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range tokenize(s) {
		for _, part := range splitScripts(tok) {
			out[part] = struct{}{}
		}
	}
	return out
}

// splitScripts cuts tok wherever it switches between ASCII and non-ASCII runes.
func splitScripts(tok string) []string {
	var parts []string
	start := 0
	prevASCII := false
	for i, r := range tok {
		isASCII := r <= unicode.MaxASCII
		if i > 0 && isASCII != prevASCII {
			parts = append(parts, tok[start:i])
			start = i
		}
		prevASCII = isASCII
	}
	if start < len(tok) {
		parts = append(parts, tok[start:])
	}
	return parts
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var titleStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {}, "your": {},
	"our": {}, "new": {}, "based": {}, "using": {}, "via": {}, "that": {}, "this": {},
	"위한": {}, "기반": {}, "통한": {}, "새로운": {}, "및": {}, "에서": {},
}

// firstContentWord returns the first title word that is not a stopword and
// is longer than two characters.
func firstContentWord(title string) string {
	for _, word := range tokenize(title) {
		lw := strings.ToLower(word)
		if _, stop := titleStopwords[lw]; stop {
			continue
		}
		if utf8.RuneCountInString(word) > 2 {
			return word
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
