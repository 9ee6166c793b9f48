package segment

import (
	"testing"
	"time"

	"vttlink/internal/vtt"
)

func mustTimestamp(t *testing.T, value string) vtt.Timestamp {
	t.Helper()
	ts, err := vtt.ParseTimestamp(value)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q) failed: %v", value, err)
	}
	return ts
}

func makeCue(t *testing.T, index int, start, end, text string) vtt.Cue {
	t.Helper()
	return vtt.Cue{
		Index: index,
		Start: mustTimestamp(t, start),
		End:   mustTimestamp(t, end),
		Text:  text,
	}
}

func defaultOptions() Options {
	return Options{MaxTokens: 50, MaxDuration: 10 * time.Second}
}

func TestStitchJoinsCuesWithSpace(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:01.000", "00:00:05.000", "Eleanor Rathbone was a"),
		makeCue(t, 1, "00:00:05.500", "00:00:10.000", "member of parliament"),
	}
	segments := Stitch(cues, defaultOptions())
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Text != "Eleanor Rathbone was a member of parliament" {
		t.Errorf("stitched text = %q", segments[0].Text)
	}
}

func TestStitchIndexCoversEveryCharacter(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:01.000", "00:00:03.000", "one two"),
		makeCue(t, 1, "00:00:03.500", "00:00:05.000", "three"),
		makeCue(t, 2, "00:00:05.500", "00:00:07.000", "four five six"),
	}
	segments := Stitch(cues, defaultOptions())
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}

	seg := segments[0]
	expected := 0
	for i, r := range seg.Index {
		if r.Start != expected {
			t.Errorf("range %d starts at %d, want %d", i, r.Start, expected)
		}
		if r.End < r.Start {
			t.Errorf("range %d is inverted: [%d,%d)", i, r.Start, r.End)
		}
		expected = r.End
	}
	if expected != len(seg.Text) {
		t.Errorf("index covers %d characters, text has %d", expected, len(seg.Text))
	}
}

func TestStitchRespectsTokenBudget(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:01.000", "00:00:02.000", "one two three"),
		makeCue(t, 1, "00:00:02.500", "00:00:03.000", "four five"),
		makeCue(t, 2, "00:00:03.500", "00:00:04.000", "six seven"),
	}
	segments := Stitch(cues, Options{MaxTokens: 5, MaxDuration: time.Minute})
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "one two three four five" {
		t.Errorf("segment 0 = %q", segments[0].Text)
	}
	if segments[1].Text != "six seven" {
		t.Errorf("segment 1 = %q", segments[1].Text)
	}
}

func TestStitchRespectsDurationBudget(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:00.000", "00:00:06.000", "a"),
		makeCue(t, 1, "00:00:06.500", "00:00:12.000", "b"),
	}
	segments := Stitch(cues, Options{MaxTokens: 100, MaxDuration: 10 * time.Second})
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
}

func TestStitchSingleOverBudgetCue(t *testing.T) {
	long := "a b c d e f g h i j k l"
	cues := []vtt.Cue{makeCue(t, 0, "00:00:00.000", "00:01:00.000", long)}
	segments := Stitch(cues, Options{MaxTokens: 5, MaxDuration: time.Second})
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Text != long {
		t.Errorf("over-budget cue text = %q", segments[0].Text)
	}
}

func TestStitchDropsNoCue(t *testing.T) {
	var cues []vtt.Cue
	for i := 0; i < 20; i++ {
		start := vtt.Timestamp(i * 2000)
		cues = append(cues, vtt.Cue{Index: i, Start: start, End: start + 1500, Text: "word"})
	}
	segments := Stitch(cues, Options{MaxTokens: 3, MaxDuration: 5 * time.Second})

	total := 0
	for _, seg := range segments {
		total += len(seg.Index)
	}
	if total != len(cues) {
		t.Errorf("index entries across segments = %d, want %d", total, len(cues))
	}
}

func TestCueSpanStraddlingBoundary(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:01.000", "00:00:05.000", "Eleanor Rathbone was a"),
		makeCue(t, 1, "00:00:05.500", "00:00:10.000", "member of parliament"),
	}
	segments := Stitch(cues, defaultOptions())
	seg := segments[0]

	// "Eleanor Rathbone" lives entirely in the first cue.
	start, end := seg.CueSpan(0, 16)
	if start.String() != "00:00:01.000" || end.String() != "00:00:05.000" {
		t.Errorf("CueSpan(0,16) = %s --> %s", start, end)
	}

	// A span reaching into the second cue widens the time range.
	start, end = seg.CueSpan(17, 29)
	if start.String() != "00:00:01.000" || end.String() != "00:00:10.000" {
		t.Errorf("CueSpan(17,29) = %s --> %s", start, end)
	}
}

func TestCueSpanJoiningSpaceBelongsToPrecedingCue(t *testing.T) {
	cues := []vtt.Cue{
		makeCue(t, 0, "00:00:01.000", "00:00:02.000", "alpha"),
		makeCue(t, 1, "00:00:03.000", "00:00:04.000", "beta"),
	}
	seg := Stitch(cues, defaultOptions())[0]

	// The space at offset 5 joined the cues; it maps to the first cue.
	start, end := seg.CueSpan(5, 6)
	if start.String() != "00:00:01.000" || end.String() != "00:00:02.000" {
		t.Errorf("CueSpan over joining space = %s --> %s", start, end)
	}
}
