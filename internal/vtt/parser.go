package vtt

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"vttlink/internal/logging"
)

// Cue is one timestamped caption entry. Cues are immutable once parsed.
type Cue struct {
	Index int
	Start Timestamp
	End   Timestamp
	Text  string
}

// Duration returns the cue length in milliseconds.
func (c Cue) Duration() int64 { return int64(c.End - c.Start) }

// Document is the parse result for a single WebVTT file. SkippedCues counts
// malformed entries the parser dropped so the run summary can report them.
type Document struct {
	Cues        []Cue
	SkippedCues int
}

var (
	cueTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	timingSeparator  = "-->"
	skippedBlockKind = map[string]struct{}{"NOTE": {}, "STYLE": {}, "REGION": {}}
)

// ParseFile reads and parses a WebVTT file from disk.
func ParseFile(path string, logger *slog.Logger) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vtt: %w", err)
	}
	defer file.Close()
	return Parse(file, logger)
}

// Parse parses WebVTT content. A missing WEBVTT header rejects the whole
// stream. A cue with a malformed timing line, reversed timestamps, or a start
// earlier than the previous cue is skipped and logged, never silently dropped
// and never fatal to the rest of the stream.
func Parse(r io.Reader, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read vtt: %w", err)
		}
		return nil, fmt.Errorf("empty file: missing WEBVTT header")
	}
	header := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") && !strings.HasPrefix(header, "WEBVTT\t") {
		return nil, fmt.Errorf("missing WEBVTT header, got %q", header)
	}

	doc := &Document{}
	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		parseBlock(doc, block, logger)
		block = block[:0]
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	flush()

	return doc, nil
}

func parseBlock(doc *Document, block []string, logger *slog.Logger) {
	first := strings.TrimSpace(block[0])
	if kind, _, _ := strings.Cut(first, " "); kind != "" {
		if _, ok := skippedBlockKind[kind]; ok {
			return
		}
	}

	// Optional cue identifier line precedes the timing line.
	timingIdx := -1
	for i, line := range block {
		if strings.Contains(line, timingSeparator) {
			timingIdx = i
			break
		}
	}
	if timingIdx < 0 || timingIdx > 1 {
		doc.SkippedCues++
		logger.Warn("skipping cue without timing line", logging.String("block", first))
		return
	}

	start, end, err := parseTimingLine(block[timingIdx])
	if err != nil {
		doc.SkippedCues++
		logger.Warn("skipping malformed cue", logging.Error(err))
		return
	}
	if end < start {
		doc.SkippedCues++
		logger.Warn("skipping cue with reversed timestamps",
			logging.String("start", start.String()),
			logging.String("end", end.String()))
		return
	}
	if n := len(doc.Cues); n > 0 && start < doc.Cues[n-1].Start {
		doc.SkippedCues++
		logger.Warn("skipping out-of-order cue",
			logging.String("start", start.String()),
			logging.String("previous_start", doc.Cues[n-1].Start.String()))
		return
	}

	text := cleanCueText(strings.Join(block[timingIdx+1:], " "))
	if text == "" {
		return
	}
	doc.Cues = append(doc.Cues, Cue{Index: len(doc.Cues), Start: start, End: end, Text: text})
}

func parseTimingLine(line string) (Timestamp, Timestamp, error) {
	parts := strings.SplitN(line, timingSeparator, 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("timing line %q: missing separator", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Cue settings may trail the end timestamp.
	endText := strings.TrimSpace(parts[1])
	if idx := strings.IndexAny(endText, " \t"); idx >= 0 {
		endText = endText[:idx]
	}
	end, err := ParseTimestamp(endText)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func cleanCueText(text string) string {
	text = cueTagPattern.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
