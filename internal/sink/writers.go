// Package sink serializes assembled mentions: line-delimited JSON for
// downstream tooling and flat CSV (nested fields embedded as JSON strings)
// for spreadsheet review. Output is deterministic so unchanged inputs yield
// byte-identical files.
package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"vttlink/internal/mention"
)

var csvColumns = []string{
	"file_id", "cue_start", "cue_end", "mention_text", "label", "context",
	"char_start", "char_end", "wikidata_qid", "wikidata_label",
	"candidates", "other_ids", "link_confidence", "needs_review", "notes",
}

// WriteJSONL writes one JSON object per mention.
func WriteJSONL(path string, mentions []mention.Mention) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jsonl: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, record := range mentions {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode mention: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl: %w", err)
	}
	return file.Close()
}

// WriteCSV writes the flat tabular form. Candidate lists and authority
// identifier maps are embedded as JSON strings in their columns.
func WriteCSV(path string, mentions []mention.Mention) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range mentions {
		row, err := csvRow(record)
		if err != nil {
			return err
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}

// FilterReview returns the subset of mentions flagged for manual review.
func FilterReview(mentions []mention.Mention) []mention.Mention {
	review := make([]mention.Mention, 0)
	for _, record := range mentions {
		if record.NeedsReview {
			review = append(review, record)
		}
	}
	return review
}

func csvRow(record mention.Mention) ([]string, error) {
	candidates, err := json.Marshal(record.Candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	otherIDs, err := json.Marshal(record.OtherIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal other_ids: %w", err)
	}

	var qid, label, confidence string
	if record.WikidataQID != nil {
		qid = *record.WikidataQID
	}
	if record.WikidataLabel != nil {
		label = *record.WikidataLabel
	}
	if record.LinkConfidence != nil {
		confidence = strconv.FormatFloat(*record.LinkConfidence, 'g', -1, 64)
	}

	return []string{
		record.FileID,
		record.CueStart,
		record.CueEnd,
		record.MentionText,
		record.Label,
		record.Context,
		strconv.Itoa(record.CharStart),
		strconv.Itoa(record.CharEnd),
		qid,
		label,
		string(candidates),
		string(otherIDs),
		confidence,
		strconv.FormatBool(record.NeedsReview),
		record.Notes,
	}, nil
}
