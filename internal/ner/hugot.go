package ner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotRecognizer runs a local ONNX token-classification model through a
// hugot session. The pipeline call is synchronous and not assumed reentrant;
// callers serialize access.
type HugotRecognizer struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewHugotRecognizer loads the token-classification model at modelPath.
func NewHugotRecognizer(modelPath string) (*HugotRecognizer, error) {
	modelPath = strings.TrimSpace(modelPath)
	if modelPath == "" {
		return nil, errors.New("recognizer model path required")
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "vttlink-ner",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("create ner pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("create ner pipeline: %w", err)
	}

	return &HugotRecognizer{session: session, pipeline: pipeline}, nil
}

// Recognize runs the model over text and returns normalized entity spans.
func (r *HugotRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := r.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("run ner pipeline: %w", err)
	}
	if len(result.Entities) == 0 {
		return nil, nil
	}

	var spans []Span
	for _, entity := range result.Entities[0] {
		word := strings.TrimSpace(entity.Word)
		if word == "" {
			continue
		}
		spans = append(spans, Span{
			Start: int(entity.Start),
			End:   int(entity.End),
			Label: normalizeLabel(entity.Entity),
			Text:  word,
		})
	}
	return spans, nil
}

// Close releases the hugot session.
func (r *HugotRecognizer) Close() error {
	if r == nil || r.session == nil {
		return nil
	}
	return r.session.Destroy()
}

// normalizeLabel strips BIO prefixes and maps model tag names onto the label
// vocabulary the rest of the pipeline uses.
func normalizeLabel(label string) string {
	label = strings.TrimPrefix(label, "B-")
	label = strings.TrimPrefix(label, "I-")
	if label == "PER" {
		return "PERSON"
	}
	return label
}
