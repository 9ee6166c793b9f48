package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vttlink/internal/linking"
	"vttlink/internal/mention"
	"vttlink/internal/ner"
	"vttlink/internal/testsupport"
)

type fakeRecognizer struct {
	names map[string]string
	err   error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]ner.Span, error) {
	if f.err != nil {
		return nil, f.err
	}
	var spans []ner.Span
	for name, label := range f.names {
		idx := strings.Index(text, name)
		for idx >= 0 {
			spans = append(spans, ner.Span{Start: idx, End: idx + len(name), Label: label, Text: name})
			next := strings.Index(text[idx+len(name):], name)
			if next < 0 {
				break
			}
			idx += len(name) + next
		}
	}
	return spans, nil
}

func (f *fakeRecognizer) Close() error { return nil }

type fakeResolver struct {
	qids map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, text string) linking.Resolution {
	qid, ok := f.qids[text]
	if !ok {
		return linking.Resolution{NeedsReview: true, Note: "Ambiguous or below accept threshold"}
	}
	confidence := 0.85
	return linking.Resolution{
		Candidates: []linking.Candidate{{QID: qid, Label: text, Source: linking.SourceSearchAPI}},
		QID:        qid,
		Label:      text,
		Confidence: &confidence,
	}
}

type fakeEnricher struct {
	ids     map[string]map[string]string
	fetches int
}

func (f *fakeEnricher) Enrich(ctx context.Context, qid string) (map[string]string, string) {
	f.fetches++
	if ids, ok := f.ids[qid]; ok {
		return ids, ""
	}
	return map[string]string{}, ""
}

func (f *fakeEnricher) Stats() (int, int) { return f.fetches, 0 }

const transcript = `WEBVTT

00:00:01.000 --> 00:00:05.000
Eleanor Rathbone was a

00:00:05.500 --> 00:00:10.000
member of parliament for Liverpool
`

func newTestRunner(t *testing.T, recognizer ner.Recognizer, resolver Resolver, enricher Enricher) (*Runner, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	extractor := ner.NewExtractor(recognizer, nil, cfg.Extraction.Labels)
	return New(cfg, extractor, resolver, enricher, nil), cfg.Paths.OutDir
}

func readMentions(t *testing.T, outDir string) []mention.Mention {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, "entities.jsonl"))
	if err != nil {
		t.Fatalf("read entities.jsonl: %v", err)
	}
	var mentions []mention.Mention
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var record mention.Mention
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("parse mention line: %v", err)
		}
		mentions = append(mentions, record)
	}
	return mentions
}

func TestRunEndToEnd(t *testing.T) {
	recognizer := &fakeRecognizer{names: map[string]string{
		"Eleanor Rathbone": "PERSON",
		"Liverpool":        "GPE",
	}}
	resolver := &fakeResolver{qids: map[string]string{"Eleanor Rathbone": "Q336252"}}
	enricher := &fakeEnricher{ids: map[string]map[string]string{
		"Q336252": {"viaf": "44373656"},
	}}
	run, outDir := newTestRunner(t, recognizer, resolver, enricher)

	input := filepath.Join(t.TempDir(), "lecture.vtt")
	testsupport.WriteTranscript(t, input, transcript)

	summary, err := run.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.FilesProcessed != 1 || summary.FilesFailed != 0 {
		t.Errorf("files = %d processed / %d failed", summary.FilesProcessed, summary.FilesFailed)
	}
	if summary.Mentions != 2 {
		t.Errorf("mentions = %d, want 2", summary.Mentions)
	}
	if summary.AcceptedLinks != 1 {
		t.Errorf("accepted links = %d, want 1", summary.AcceptedLinks)
	}
	if summary.ReviewFlagged != 1 {
		t.Errorf("review flagged = %d, want 1", summary.ReviewFlagged)
	}
	if summary.RunID == "" {
		t.Error("summary missing run id")
	}

	mentions := readMentions(t, outDir)
	if len(mentions) != 2 {
		t.Fatalf("got %d mentions, want 2", len(mentions))
	}
	byText := make(map[string]mention.Mention)
	for _, record := range mentions {
		byText[record.MentionText] = record
	}

	linked := byText["Eleanor Rathbone"]
	if linked.WikidataQID == nil || *linked.WikidataQID != "Q336252" {
		t.Errorf("linked mention = %+v", linked)
	}
	if linked.OtherIDs["viaf"] != "44373656" {
		t.Errorf("other_ids = %v", linked.OtherIDs)
	}
	if linked.FileID != "lecture.vtt" {
		t.Errorf("file_id = %q", linked.FileID)
	}

	unresolved := byText["Liverpool"]
	if unresolved.WikidataQID != nil || !unresolved.NeedsReview {
		t.Errorf("unresolved mention = %+v", unresolved)
	}

	for _, name := range []string{"entities.jsonl", "entities.csv", "entities_needs_review.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunRepeatProducesIdenticalOutputs(t *testing.T) {
	recognizer := &fakeRecognizer{names: map[string]string{
		"Eleanor Rathbone": "PERSON",
		"Liverpool":        "GPE",
	}}
	resolver := &fakeResolver{qids: map[string]string{"Eleanor Rathbone": "Q336252"}}
	enricher := &fakeEnricher{ids: map[string]map[string]string{
		"Q336252": {"viaf": "44373656"},
	}}

	input := filepath.Join(t.TempDir(), "lecture.vtt")
	testsupport.WriteTranscript(t, input, transcript)

	outDirs := make([]string, 2)
	for i := range outDirs {
		run, outDir := newTestRunner(t, recognizer, resolver, enricher)
		if _, err := run.Run(context.Background(), input); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
		outDirs[i] = outDir
	}

	for _, name := range []string{"entities.jsonl", "entities.csv"} {
		first, err := os.ReadFile(filepath.Join(outDirs[0], name))
		if err != nil {
			t.Fatalf("read %s from first run: %v", name, err)
		}
		second, err := os.ReadFile(filepath.Join(outDirs[1], name))
		if err != nil {
			t.Fatalf("read %s from second run: %v", name, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s differs between runs:\n%s---\n%s", name, first, second)
		}
	}
}

func TestRunLinkingDisabled(t *testing.T) {
	recognizer := &fakeRecognizer{names: map[string]string{"Eleanor Rathbone": "PERSON"}}
	run, outDir := newTestRunner(t, recognizer, nil, nil)

	input := filepath.Join(t.TempDir(), "lecture.vtt")
	testsupport.WriteTranscript(t, input, transcript)

	summary, err := run.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.AcceptedLinks != 0 || summary.ReviewFlagged != 0 {
		t.Errorf("summary = %+v, want no links and no review flags", summary)
	}

	mentions := readMentions(t, outDir)
	if len(mentions) != 1 {
		t.Fatalf("got %d mentions, want 1", len(mentions))
	}
	record := mentions[0]
	if record.WikidataQID != nil || record.NeedsReview {
		t.Errorf("mention with linking disabled = %+v", record)
	}
	if record.Candidates == nil || record.OtherIDs == nil {
		t.Error("nested fields must serialize as empty, not null")
	}
}

func TestRunContinuesPastFileFailure(t *testing.T) {
	recognizer := &fakeRecognizer{names: map[string]string{"Eleanor Rathbone": "PERSON"}}
	run, _ := newTestRunner(t, recognizer, nil, nil)

	dir := t.TempDir()
	testsupport.WriteTranscript(t, filepath.Join(dir, "bad.vtt"), "no header here\n")
	testsupport.WriteTranscript(t, filepath.Join(dir, "good.vtt"), transcript)

	summary, err := run.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.FilesProcessed != 1 {
		t.Errorf("files processed = %d, want 1", summary.FilesProcessed)
	}
	if summary.FilesFailed != 1 {
		t.Errorf("files failed = %d, want 1", summary.FilesFailed)
	}
	if summary.Mentions != 1 {
		t.Errorf("mentions = %d, want 1", summary.Mentions)
	}
}

func TestRunAbortsOnRecognizerFailure(t *testing.T) {
	recognizer := &fakeRecognizer{err: errors.New("session crashed")}
	run, _ := newTestRunner(t, recognizer, nil, nil)

	input := filepath.Join(t.TempDir(), "lecture.vtt")
	testsupport.WriteTranscript(t, input, transcript)

	_, err := run.Run(context.Background(), input)
	if err == nil {
		t.Fatal("Run should abort when the recognizer fails")
	}
	if !IsFatal(err) {
		t.Errorf("recognizer failure should classify as fatal: %v", err)
	}
}

func TestRunCountsSkippedCues(t *testing.T) {
	recognizer := &fakeRecognizer{names: map[string]string{}}
	run, _ := newTestRunner(t, recognizer, nil, nil)

	body := `WEBVTT

00:00:01.000 --> 00:00:05.000
fine cue

garbage --> 00:00:06.000
broken
`
	input := filepath.Join(t.TempDir(), "lecture.vtt")
	testsupport.WriteTranscript(t, input, body)

	summary, err := run.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.CuesSkipped != 1 {
		t.Errorf("cues skipped = %d, want 1", summary.CuesSkipped)
	}
}

func TestRunNoFiles(t *testing.T) {
	recognizer := &fakeRecognizer{}
	run, _ := newTestRunner(t, recognizer, nil, nil)

	if _, err := run.Run(context.Background(), t.TempDir()); err == nil {
		t.Fatal("Run should fail when the input holds no .vtt files")
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTranscript(t, filepath.Join(dir, "b.vtt"), "WEBVTT\n")
	testsupport.WriteTranscript(t, filepath.Join(dir, "a.vtt"), "WEBVTT\n")
	testsupport.WriteTranscript(t, filepath.Join(dir, "nested", "c.VTT"), "WEBVTT\n")
	testsupport.WriteTranscript(t, filepath.Join(dir, "ignore.srt"), "1\n")

	files, err := CollectFiles(dir)
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.vtt" || filepath.Base(files[1]) != "b.vtt" {
		t.Errorf("files not sorted: %v", files)
	}
}

func TestCollectFilesRejectsNonVTT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteTranscript(t, path, "hello")

	if _, err := CollectFiles(path); err == nil {
		t.Fatal("CollectFiles should reject a non-vtt file argument")
	}
}
