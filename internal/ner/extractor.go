package ner

import (
	"context"
	"sort"
	"strings"
)

// Extractor combines the statistical recognizer with pattern overrides and
// applies the accept-label filter. The filter runs after recognition and
// override merging so override patterns of any label can still fire.
type Extractor struct {
	recognizer Recognizer
	patterns   []Pattern
	accept     map[string]struct{}
}

// NewExtractor builds an extractor keeping only the given labels.
func NewExtractor(recognizer Recognizer, patterns []Pattern, labels []string) *Extractor {
	accept := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label != "" {
			accept[label] = struct{}{}
		}
	}
	return &Extractor{recognizer: recognizer, patterns: patterns, accept: accept}
}

// Extract returns the accepted entity spans for one segment text, sorted by
// start offset. Recognizer failure is returned as-is; it is fatal upstream.
func (e *Extractor) Extract(ctx context.Context, text string) ([]Span, error) {
	recognized, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	overrides := matchPatterns(text, e.patterns)

	merged := make([]Span, 0, len(recognized)+len(overrides))
	merged = append(merged, overrides...)
	for _, span := range recognized {
		if overlapsAny(span, overrides) {
			continue
		}
		merged = append(merged, span)
	}

	filtered := merged[:0]
	for _, span := range merged {
		if _, ok := e.accept[span.Label]; ok {
			filtered = append(filtered, span)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Start != filtered[j].Start {
			return filtered[i].Start < filtered[j].Start
		}
		return filtered[i].End < filtered[j].End
	})
	return filtered, nil
}

func overlapsAny(span Span, others []Span) bool {
	for _, other := range others {
		if span.Start < other.End && other.Start < span.End {
			return true
		}
	}
	return false
}
