// Package mention assembles the terminal output records: one detected,
// possibly-linked entity occurrence with its recovered cue timestamps.
package mention

import (
	"vttlink/internal/linking"
	"vttlink/internal/ner"
	"vttlink/internal/segment"
)

// Mention is the persisted entity record. Immutable once assembled;
// authority identifiers are filled in before assembly, never after.
type Mention struct {
	FileID         string              `json:"file_id"`
	CueStart       string              `json:"cue_start"`
	CueEnd         string              `json:"cue_end"`
	MentionText    string              `json:"mention_text"`
	Label          string              `json:"label"`
	Context        string              `json:"context"`
	CharStart      int                 `json:"char_start"`
	CharEnd        int                 `json:"char_end"`
	WikidataQID    *string             `json:"wikidata_qid"`
	WikidataLabel  *string             `json:"wikidata_label"`
	Candidates     []linking.Candidate `json:"candidates"`
	OtherIDs       map[string]string   `json:"other_ids"`
	LinkConfidence *float64            `json:"link_confidence"`
	NeedsReview    bool                `json:"needs_review"`
	Notes          string              `json:"notes"`
}

// Assembler composes mentions for one file.
type Assembler struct {
	fileID        string
	contextRadius int
}

// NewAssembler creates an assembler stamping records with fileID.
func NewAssembler(fileID string, contextRadius int) *Assembler {
	return &Assembler{fileID: fileID, contextRadius: contextRadius}
}

// Assemble combines an entity span, its segment, and the (possibly empty)
// link resolution into one record, recovering the cue time range the span
// overlaps. A mention may straddle a cue boundary; that is the entire reason
// cue stitching exists.
func (a *Assembler) Assemble(seg *segment.Segment, span ner.Span, resolution linking.Resolution, otherIDs map[string]string) Mention {
	cueStart, cueEnd := seg.CueSpan(span.Start, span.End)

	record := Mention{
		FileID:      a.fileID,
		CueStart:    cueStart.String(),
		CueEnd:      cueEnd.String(),
		MentionText: span.Text,
		Label:       span.Label,
		Context:     segment.ContextWindow(seg.Text, span.Start, span.End, a.contextRadius),
		CharStart:   span.Start,
		CharEnd:     span.End,
		Candidates:  resolution.Candidates,
		OtherIDs:    otherIDs,
		NeedsReview: resolution.NeedsReview,
		Notes:       resolution.Note,
	}
	if record.Candidates == nil {
		record.Candidates = []linking.Candidate{}
	}
	if record.OtherIDs == nil {
		record.OtherIDs = map[string]string{}
	}
	if resolution.QID != "" {
		qid := resolution.QID
		record.WikidataQID = &qid
		if resolution.Label != "" {
			label := resolution.Label
			record.WikidataLabel = &label
		}
	}
	if resolution.Confidence != nil {
		confidence := *resolution.Confidence
		record.LinkConfidence = &confidence
	}
	return record
}
