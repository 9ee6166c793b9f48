package linking

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespaceRun      = regexp.MustCompile(`\s+`)
	trailingPossessive = regexp.MustCompile(`(?i)(?:'s|’s|s'|s’)$`)
	leadingArticles    = []string{"the ", "a ", "an "}
	titleCaser         = cases.Title(language.Und)
)

// NormalizeVariants generates the ordered list of cleaned query variants for
// the fallback search:
//
//	"Eleanor Rathbone's"          -> ["Eleanor Rathbone", "eleanor rathbone" title-cased]
//	"Pankhursts"                  -> ["Pankhursts", "Pankhurst", ...]
//	"the public assistance board" -> ["public assistance board", ...]
//
// Duplicates are removed case-insensitively, preserving first occurrence.
func NormalizeVariants(text string) []string {
	t := strings.TrimSpace(text)
	t = whitespaceRun.ReplaceAllString(t, " ")
	t = strings.Trim(t, "“”\"'` ")

	t = trailingPossessive.ReplaceAllString(t, "")

	lower := strings.ToLower(t)
	for _, article := range leadingArticles {
		if strings.HasPrefix(lower, article) {
			t = t[len(article):]
			break
		}
	}

	t = strings.TrimFunc(t, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})

	variants := []string{t}
	if t != "" && t != strings.ToUpper(t) {
		variants = append(variants, titleCaser.String(t))
	}

	// Plural to singular heuristics for single-token spans only.
	if !strings.Contains(t, " ") {
		if endsWithLetterThen(t, "s") {
			variants = append(variants, t[:len(t)-1])
		}
		if endsWithLetterThen(t, "es") {
			variants = append(variants, t[:len(t)-2])
		}
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func endsWithLetterThen(text, suffix string) bool {
	if !strings.HasSuffix(text, suffix) {
		return false
	}
	rest := text[:len(text)-len(suffix)]
	if rest == "" {
		return false
	}
	runes := []rune(rest)
	return unicode.IsLetter(runes[len(runes)-1])
}
