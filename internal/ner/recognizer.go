// Package ner adapts an external named-entity recognizer for use over
// stitched transcript segments, layering optional pattern overrides on top
// and filtering results to the configured label set.
package ner

import "context"

// Span is one detected entity occurrence. Start and End are byte offsets
// into the text handed to the recognizer.
type Span struct {
	Start int
	End   int
	Label string
	Text  string
}

// Recognizer is the external statistical recognizer. Recognition is a local,
// synchronous call; if it fails the whole run fails.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
	Close() error
}
