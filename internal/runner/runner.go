// Package runner orchestrates a processing run: collecting transcript
// files, driving the per-file pipeline through a bounded worker pool, and
// routing assembled mentions to the output sinks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vttlink/internal/config"
	"vttlink/internal/linking"
	"vttlink/internal/logging"
	"vttlink/internal/mention"
	"vttlink/internal/ner"
	"vttlink/internal/segment"
	"vttlink/internal/sink"
	"vttlink/internal/vtt"
)

// Resolver is the linking stage as the runner consumes it.
type Resolver interface {
	Resolve(ctx context.Context, text string) linking.Resolution
}

// Enricher is the optional authority-identifier stage.
type Enricher interface {
	Enrich(ctx context.Context, qid string) (map[string]string, string)
	Stats() (fetches, cacheHits int)
}

// Summary is the user-visible outcome of a run.
type Summary struct {
	RunID               string
	FilesProcessed      int
	FilesFailed         int
	CuesSkipped         int
	Segments            int
	Mentions            int
	AcceptedLinks       int
	ReviewFlagged       int
	EnrichmentFetches   int
	EnrichmentCacheHits int
	Elapsed             time.Duration
}

// Runner executes processing runs. Resolver and Enricher may be nil: a nil
// Resolver means linking is disabled and every mention is emitted unlinked
// with needs_review=false; a nil Enricher skips authority enrichment.
type Runner struct {
	cfg       *config.Config
	extractor *ner.Extractor
	resolver  Resolver
	enricher  Enricher
	logger    *slog.Logger

	// The recognizer call is synchronous and not assumed reentrant.
	extractMu sync.Mutex
}

// New assembles a runner from its collaborators.
func New(cfg *config.Config, extractor *ner.Extractor, resolver Resolver, enricher Enricher, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		extractor: extractor,
		resolver:  resolver,
		enricher:  enricher,
		logger:    logging.NewComponentLogger(logger, "runner"),
	}
}

// Run processes a .vtt file or a directory of them, writes the output sets
// under the configured out directory, and returns the run summary. Partial
// per-file failures are logged and the run continues; recognizer failures
// abort the run.
func (r *Runner) Run(ctx context.Context, input string) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With(logging.String(logging.FieldRunID, summary.RunID))

	files, err := CollectFiles(input)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .vtt files found under %s", input)
	}

	if err := os.MkdirAll(r.cfg.Paths.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out directory: %w", err)
	}
	unlock, err := acquireRunLock(r.cfg.Paths.OutDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger.Info("run started",
		logging.Int("files", len(files)),
		logging.Int("workers", r.cfg.Workflow.Workers))

	results, err := r.processAll(ctx, logger, files, summary)
	if err != nil {
		return nil, err
	}

	var all []mention.Mention
	for _, fileMentions := range results {
		all = append(all, fileMentions...)
	}
	for _, record := range all {
		if record.WikidataQID != nil {
			summary.AcceptedLinks++
		}
		if record.NeedsReview {
			summary.ReviewFlagged++
		}
	}
	summary.Mentions = len(all)
	if r.enricher != nil {
		summary.EnrichmentFetches, summary.EnrichmentCacheHits = r.enricher.Stats()
	}

	if err := r.writeOutputs(all); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(started)
	logger.Info("run finished",
		logging.Int("mentions", summary.Mentions),
		logging.Int("accepted_links", summary.AcceptedLinks),
		logging.Int("review_flagged", summary.ReviewFlagged),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// processAll fans files out to the worker pool. Results are keyed by file
// index so the output order matches the sorted input order no matter which
// worker finishes first.
func (r *Runner) processAll(ctx context.Context, logger *slog.Logger, files []string, summary *Summary) ([][]mention.Mention, error) {
	workers := r.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type fileResult struct {
		mentions []mention.Mention
		stats    fileStats
		err      error
	}
	results := make([]fileResult, len(files))
	for idx := range results {
		results[idx].err = errNotRun
	}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				mentions, stats, err := r.processFile(runCtx, logger, files[idx])
				results[idx] = fileResult{mentions: mentions, stats: stats, err: err}
				if err != nil && IsFatal(err) {
					cancel()
				}
			}
		}()
	}
	for idx := range files {
		select {
		case jobs <- idx:
		case <-runCtx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	ordered := make([][]mention.Mention, 0, len(files))
	for idx, result := range results {
		if result.err != nil {
			if errors.Is(result.err, errNotRun) {
				continue
			}
			if IsFatal(result.err) {
				return nil, result.err
			}
			summary.FilesFailed++
			logger.Error("file failed, continuing",
				logging.String(logging.FieldFile, filepath.Base(files[idx])),
				logging.Error(result.err))
			continue
		}
		summary.FilesProcessed++
		summary.CuesSkipped += result.stats.cuesSkipped
		summary.Segments += result.stats.segments
		ordered = append(ordered, result.mentions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ordered, nil
}

type fileStats struct {
	cuesSkipped int
	segments    int
}

// processFile runs the sequential single-file pipeline: parse, stitch,
// extract, link, enrich, assemble.
func (r *Runner) processFile(ctx context.Context, logger *slog.Logger, path string) ([]mention.Mention, fileStats, error) {
	fileID := filepath.Base(path)
	fileLogger := logger.With(logging.String(logging.FieldFile, fileID))
	var stats fileStats

	doc, err := vtt.ParseFile(path, fileLogger)
	if err != nil {
		return nil, stats, Wrap(ErrParse, "vtt", "parse", path, err)
	}
	stats.cuesSkipped = doc.SkippedCues
	if len(doc.Cues) == 0 {
		fileLogger.Warn("no usable cues in file")
		return nil, stats, nil
	}

	segments := segment.Stitch(doc.Cues, segment.Options{
		MaxTokens:   r.cfg.Stitching.MaxTokensPerSegment,
		MaxDuration: time.Duration(r.cfg.Stitching.MaxSecondsPerSegment * float64(time.Second)),
	})
	stats.segments = len(segments)

	assembler := mention.NewAssembler(fileID, r.cfg.Extraction.ContextTokens)
	var mentions []mention.Mention
	for i := range segments {
		seg := &segments[i]

		r.extractMu.Lock()
		spans, err := r.extractor.Extract(ctx, seg.Text)
		r.extractMu.Unlock()
		if err != nil {
			return nil, stats, Wrap(ErrExtractionUnavailable, "ner", "extract", fileID, err)
		}

		for _, span := range spans {
			var resolution linking.Resolution
			if r.resolver != nil {
				resolution = r.resolver.Resolve(ctx, span.Text)
			}

			otherIDs := map[string]string{}
			if r.enricher != nil && resolution.QID != "" {
				ids, note := r.enricher.Enrich(ctx, resolution.QID)
				otherIDs = ids
				resolution.Note = joinNotes(resolution.Note, note)
			}

			mentions = append(mentions, assembler.Assemble(seg, span, resolution, otherIDs))
		}
	}

	fileLogger.Info("file processed",
		logging.Int("cues", len(doc.Cues)),
		logging.Int("cues_skipped", stats.cuesSkipped),
		logging.Int("segments", stats.segments),
		logging.Int("mentions", len(mentions)))
	return mentions, stats, nil
}

func (r *Runner) writeOutputs(all []mention.Mention) error {
	outDir := r.cfg.Paths.OutDir
	if err := sink.WriteJSONL(filepath.Join(outDir, "entities.jsonl"), all); err != nil {
		return err
	}
	if err := sink.WriteCSV(filepath.Join(outDir, "entities.csv"), all); err != nil {
		return err
	}
	review := sink.FilterReview(all)
	return sink.WriteCSV(filepath.Join(outDir, "entities_needs_review.csv"), review)
}

// CollectFiles resolves the input argument to a sorted list of .vtt files.
func CollectFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(input), ".vtt") {
			return nil, fmt.Errorf("input %s is not a .vtt file or directory", input)
		}
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), ".vtt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// acquireRunLock prevents two concurrent runs from interleaving writes to
// the same output directory.
func acquireRunLock(outDir string) (func(), error) {
	lock := flock.New(filepath.Join(outDir, ".vttlink.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another vttlink run is already writing to this output directory")
	}
	return func() { _ = lock.Unlock() }, nil
}

func joinNotes(notes ...string) string {
	parts := make([]string, 0, len(notes))
	for _, note := range notes {
		if note = strings.TrimSpace(note); note != "" {
			parts = append(parts, note)
		}
	}
	return strings.Join(parts, "; ")
}
