package linking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vttlink/internal/logging"
	"vttlink/internal/wikidata"
)

// Searcher is the remote fallback search (Stage B).
type Searcher interface {
	Search(ctx context.Context, query string) ([]wikidata.SearchResult, error)
}

// Resolution is the outcome of resolving one mention's surface text.
type Resolution struct {
	Candidates  []Candidate
	QID         string
	Label       string
	Confidence  *float64
	NeedsReview bool
	Note        string
	// Attempts counts remote search calls, including retries, for
	// observability in failure notes and logs.
	Attempts int
}

// Resolver runs the two-stage candidate pipeline: offline knowledge-base
// lookup first, remote search over normalized variants only when the lookup
// yields nothing.
type Resolver struct {
	lookup     Lookup
	searcher   Searcher
	thresholds Thresholds
	retry      RetryPolicy
	logger     *slog.Logger
}

// NewResolver wires the resolver's collaborators. Either lookup or searcher
// may be nil; the corresponding stage is then skipped.
func NewResolver(lookup Lookup, searcher Searcher, thresholds Thresholds, retry RetryPolicy, logger *slog.Logger) *Resolver {
	return &Resolver{
		lookup:     lookup,
		searcher:   searcher,
		thresholds: thresholds,
		retry:      retry,
		logger:     logging.NewComponentLogger(logger, "linker"),
	}
}

// Resolve produces the ranked candidate list and the accept/review decision
// for one mention. Remote failures degrade to an unresolved mention with a
// note; they never propagate as errors.
func (r *Resolver) Resolve(ctx context.Context, text string) Resolution {
	if r.lookup != nil {
		candidates, err := r.lookup.Lookup(ctx, text)
		if err != nil {
			r.logger.Warn("knowledge-base lookup failed",
				logging.String("mention", text),
				logging.Error(err))
		} else if len(candidates) > 0 {
			return r.resolveFromLookup(text, candidates)
		}
	}
	return r.resolveFromSearch(ctx, text)
}

// resolveFromLookup scores Stage A candidates by match tier: alias-confirmed
// beats direct beats unconfirmed; ties keep the lookup's own rank order.
func (r *Resolver) resolveFromLookup(text string, candidates []Candidate) Resolution {
	textFolded := strings.ToLower(strings.TrimSpace(text))

	best := 0
	bestTier := 0.0
	for i, candidate := range candidates {
		tier := kbTiers.Unconfirmed
		if aliasConfirmed(textFolded, candidate.Aliases) {
			tier = kbTiers.AliasConfirmed
		} else if len(candidates) == 1 && strings.EqualFold(candidate.Label, strings.TrimSpace(text)) {
			tier = kbTiers.Direct
		}
		if tier > bestTier {
			best = i
			bestTier = tier
		}
	}

	confidence := bestTier
	resolution := Resolution{Candidates: candidates, Confidence: &confidence}
	r.applyDecision(&resolution, candidates[best].QID, candidates[best].Label)

	r.logger.Debug("lookup stage resolved mention",
		logging.String("mention", text),
		logging.Int("candidates", len(candidates)),
		logging.Float64("confidence", confidence),
		logging.Bool("needs_review", resolution.NeedsReview))
	return resolution
}

func aliasConfirmed(textFolded string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.ToLower(strings.TrimSpace(alias)) == textFolded {
			return true
		}
	}
	return false
}

// resolveFromSearch queries the remote search API with each normalized
// variant in turn, stopping at the first variant returning any result.
func (r *Resolver) resolveFromSearch(ctx context.Context, text string) Resolution {
	var resolution Resolution
	if r.searcher == nil {
		r.applyDecision(&resolution, "", "")
		return resolution
	}

	variants := NormalizeVariants(text)
	for _, variant := range variants {
		var results []wikidata.SearchResult
		attempts, err := r.retry.Do(ctx, wikidata.IsRetriable, func() error {
			hits, searchErr := r.searcher.Search(ctx, variant)
			if searchErr != nil {
				return searchErr
			}
			results = hits
			return nil
		})
		resolution.Attempts += attempts
		if err != nil {
			// Exhausted retries: degrade to an unresolved mention.
			r.logger.Warn("search exhausted retries",
				logging.String("mention", text),
				logging.String("variant", variant),
				logging.Int("attempts", resolution.Attempts),
				logging.Error(err))
			r.applyDecision(&resolution, "", "")
			resolution.Note = joinNotes(
				fmt.Sprintf("Search unavailable after %d attempts", resolution.Attempts),
				resolution.Note)
			return resolution
		}
		if len(results) == 0 {
			continue
		}

		for _, hit := range results {
			resolution.Candidates = append(resolution.Candidates, Candidate{
				QID:     hit.ID,
				Label:   hit.Label,
				Aliases: hit.Aliases,
				Source:  SourceSearchAPI,
			})
		}

		chosen := results[0]
		confidence := searchTiers.TopResult
		for _, hit := range results {
			if hit.Label == variant {
				chosen = hit
				confidence = searchTiers.ExactLabel
				break
			}
		}
		resolution.Confidence = &confidence
		r.applyDecision(&resolution, chosen.ID, chosen.Label)

		r.logger.Debug("search stage resolved mention",
			logging.String("mention", text),
			logging.String("variant", variant),
			logging.Float64("confidence", confidence),
			logging.Bool("exact_label_match", confidence == searchTiers.ExactLabel))
		return resolution
	}

	r.logger.Debug("no candidates from any source",
		logging.String("mention", text),
		logging.String("variants", strings.Join(variants, ", ")))
	r.applyDecision(&resolution, "", "")
	return resolution
}

func (r *Resolver) applyDecision(resolution *Resolution, qid, label string) {
	decision := Decide(resolution.Confidence, r.thresholds)
	if decision.AssignQID && qid != "" {
		resolution.QID = qid
		resolution.Label = label
	} else {
		resolution.QID = ""
		resolution.Label = ""
	}
	resolution.NeedsReview = decision.NeedsReview
	resolution.Note = decision.Note
}

func joinNotes(notes ...string) string {
	var parts []string
	for _, note := range notes {
		if note = strings.TrimSpace(note); note != "" {
			parts = append(parts, note)
		}
	}
	return strings.Join(parts, "; ")
}
