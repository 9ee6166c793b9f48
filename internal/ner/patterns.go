package ner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"vttlink/internal/segment"
)

// TokenRule is one token-level predicate in a token pattern. Zero-valued
// fields are unconstrained.
type TokenRule struct {
	LowerIn []string
	IsTitle bool
}

// Pattern is one override rule. Either Phrase is set (exact text match) or
// Tokens is set (token predicate sequence). Override matches take precedence
// over recognizer spans they overlap, regardless of label.
type Pattern struct {
	Label  string
	Phrase string
	Tokens []TokenRule
}

type rawPattern struct {
	Label   string          `json:"label"`
	Pattern json.RawMessage `json:"pattern"`
}

type rawTokenRule struct {
	Lower   json.RawMessage `json:"LOWER"`
	IsTitle bool            `json:"IS_TITLE"`
}

// LoadPatterns reads a JSONL pattern file. Each line holds a label plus
// either a phrase string or a token rule array:
//
//	{"label":"ORG","pattern":"Somerville College"}
//	{"label":"PERSON","pattern":[{"LOWER":{"IN":["dr.","dame"]}},{"IS_TITLE":true}]}
func LoadPatterns(path string) ([]Pattern, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file: %w", err)
	}
	defer file.Close()

	var patterns []Pattern
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw rawPattern
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("pattern file line %d: %w", lineNo, err)
		}
		pattern, err := decodePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("pattern file line %d: %w", lineNo, err)
		}
		patterns = append(patterns, pattern)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return patterns, nil
}

func decodePattern(raw rawPattern) (Pattern, error) {
	label := strings.TrimSpace(raw.Label)
	if label == "" {
		return Pattern{}, fmt.Errorf("pattern missing label")
	}
	if len(raw.Pattern) == 0 {
		return Pattern{}, fmt.Errorf("pattern missing body")
	}

	var phrase string
	if err := json.Unmarshal(raw.Pattern, &phrase); err == nil {
		if strings.TrimSpace(phrase) == "" {
			return Pattern{}, fmt.Errorf("empty phrase pattern")
		}
		return Pattern{Label: label, Phrase: phrase}, nil
	}

	var rawRules []rawTokenRule
	if err := json.Unmarshal(raw.Pattern, &rawRules); err != nil {
		return Pattern{}, fmt.Errorf("pattern must be a string or token rule array: %w", err)
	}
	if len(rawRules) == 0 {
		return Pattern{}, fmt.Errorf("empty token pattern")
	}
	rules := make([]TokenRule, 0, len(rawRules))
	for _, rr := range rawRules {
		rule := TokenRule{IsTitle: rr.IsTitle}
		if len(rr.Lower) > 0 {
			var single string
			if err := json.Unmarshal(rr.Lower, &single); err == nil {
				rule.LowerIn = []string{single}
			} else {
				var in struct {
					In []string `json:"IN"`
				}
				if err := json.Unmarshal(rr.Lower, &in); err != nil {
					return Pattern{}, fmt.Errorf("unsupported LOWER predicate: %w", err)
				}
				rule.LowerIn = in.In
			}
		}
		rules = append(rules, rule)
	}
	return Pattern{Label: label, Tokens: rules}, nil
}

// matchPatterns scans tokenized text for pattern occurrences.
func matchPatterns(text string, patterns []Pattern) []Span {
	if len(patterns) == 0 {
		return nil
	}
	tokens := segment.Tokenize(text)
	var spans []Span
	for _, pattern := range patterns {
		spans = append(spans, matchPattern(text, tokens, pattern)...)
	}
	return spans
}

func matchPattern(text string, tokens []segment.Token, pattern Pattern) []Span {
	var want []func(segment.Token) bool
	if pattern.Phrase != "" {
		phraseTokens := strings.Fields(pattern.Phrase)
		for _, pt := range phraseTokens {
			pt := pt
			want = append(want, func(tok segment.Token) bool { return trimEdgePunct(tok.Text) == pt })
		}
	} else {
		for _, rule := range pattern.Tokens {
			rule := rule
			want = append(want, func(tok segment.Token) bool { return ruleMatches(rule, tok.Text) })
		}
	}
	if len(want) == 0 {
		return nil
	}

	var spans []Span
	for i := 0; i+len(want) <= len(tokens); i++ {
		matched := true
		for j, pred := range want {
			if !pred(tokens[i+j]) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		start := tokens[i].Start
		end := tokens[i+len(want)-1].End
		spans = append(spans, Span{Start: start, End: end, Label: pattern.Label, Text: text[start:end]})
	}
	return spans
}

func ruleMatches(rule TokenRule, tokenText string) bool {
	word := trimEdgePunct(tokenText)
	if len(rule.LowerIn) > 0 {
		lower := strings.ToLower(word)
		found := false
		for _, candidate := range rule.LowerIn {
			if lower == candidate {
				found = true
				break
			}
		}
		// LOWER predicates keep trailing punctuation meaningful ("dr.").
		if !found {
			lower = strings.ToLower(tokenText)
			for _, candidate := range rule.LowerIn {
				if lower == candidate {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if rule.IsTitle {
		runes := []rune(word)
		if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	return true
}

func trimEdgePunct(text string) string {
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
