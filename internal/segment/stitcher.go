// Package segment stitches consecutive caption cues into analyzable text
// blocks while keeping a reversible character-to-cue index, so any entity
// span found in the stitched text maps back to exact cue timestamps.
package segment

import (
	"strings"
	"time"

	"vttlink/internal/vtt"
)

// Options bounds how much text a single segment may accumulate.
type Options struct {
	MaxTokens   int
	MaxDuration time.Duration
}

// Range maps a half-open [Start,End) character range of the segment text to
// the cue that contributed it. The joining space between two cues is
// attributed to the preceding cue so ranges stay contiguous.
type Range struct {
	Start int
	End   int
	Cue   vtt.Cue
}

// Segment is a stitched run of cues treated as one text unit for recognition.
// The Index entries are contiguous, non-overlapping, sorted, and cover every
// character of Text exactly once.
type Segment struct {
	Text  string
	Index []Range
}

// CueSpan recovers the cue time range overlapped by a character span of the
// segment text. A span that overlaps no range (possible only for zero-length
// input) falls back to the segment's full cue bounds.
func (s *Segment) CueSpan(charStart, charEnd int) (vtt.Timestamp, vtt.Timestamp) {
	first := -1
	last := -1
	for i, r := range s.Index {
		if r.End <= charStart || r.Start >= charEnd {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		first = 0
		last = len(s.Index) - 1
	}
	return s.Index[first].Cue.Start, s.Index[last].Cue.End
}

// Stitch greedily accumulates cues into segments until the token or duration
// budget would be exceeded. A single over-budget cue still forms its own
// segment; the final cue always closes its segment. No cue is ever dropped.
func Stitch(cues []vtt.Cue, opts Options) []Segment {
	var segments []Segment

	var builder strings.Builder
	var index []Range
	var tokens int
	var segStart vtt.Timestamp

	flush := func() {
		if len(index) == 0 {
			return
		}
		segments = append(segments, Segment{Text: builder.String(), Index: index})
		builder.Reset()
		index = nil
		tokens = 0
	}

	for _, cue := range cues {
		cueTokens := len(strings.Fields(cue.Text))
		if len(index) > 0 {
			wouldSpan := time.Duration(cue.End-segStart) * time.Millisecond
			if tokens+cueTokens > opts.MaxTokens || wouldSpan > opts.MaxDuration {
				flush()
			}
		}
		if len(index) == 0 {
			segStart = cue.Start
		}

		start := builder.Len()
		if builder.Len() > 0 && cue.Text != "" {
			// Joining space belongs to the previous cue's range.
			builder.WriteByte(' ')
			index[len(index)-1].End++
			start++
		}
		builder.WriteString(cue.Text)
		index = append(index, Range{Start: start, End: builder.Len(), Cue: cue})
		tokens += cueTokens
	}
	flush()

	return segments
}
