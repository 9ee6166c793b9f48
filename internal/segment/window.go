package segment

import (
	"strings"
	"unicode"
)

// Token is one whitespace-delimited run of the segment text with its
// half-open character range. This tokenization is used only for budgeting
// and context windows, independent of the recognizer's own tokenizer.
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokenize splits text on whitespace, keeping character positions.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// TokenCount is the budgeting token count for a piece of cue text.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

// ContextWindow returns the substring spanning radius tokens on either side
// of the mention character span, clipped at the segment boundaries. It never
// fails for mentions at a boundary.
func ContextWindow(text string, charStart, charEnd, radius int) string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return ""
	}

	first := -1
	last := -1
	for i, tok := range tokens {
		if tok.End <= charStart {
			continue
		}
		if tok.Start >= charEnd {
			break
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		// Span fell between tokens; anchor on the nearest preceding token.
		for i, tok := range tokens {
			if tok.Start > charStart {
				break
			}
			first = i
		}
		if first < 0 {
			first = 0
		}
		last = first
	}

	lo := first - radius
	if lo < 0 {
		lo = 0
	}
	hi := last + radius
	if hi > len(tokens)-1 {
		hi = len(tokens) - 1
	}
	return text[tokens[lo].Start:tokens[hi].End]
}
