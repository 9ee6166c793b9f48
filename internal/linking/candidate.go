// Package linking reconciles entity-link candidates from the offline
// knowledge base and the remote search API into one deterministic
// accept/review decision per mention.
package linking

import "context"

// Source identifies which collaborator produced a candidate.
type Source string

const (
	SourceKBLookup  Source = "KB_LOOKUP"
	SourceSearchAPI Source = "SEARCH_API"
)

// Candidate is one proposed knowledge-base identity for a mention.
// Candidates are immutable; list order is the rank order of their source.
type Candidate struct {
	QID     string   `json:"qid"`
	Label   string   `json:"label"`
	Score   *float64 `json:"score"`
	Aliases []string `json:"aliases"`
	Source  Source   `json:"source"`
}

// Lookup is the offline knowledge-base candidate lookup (Stage A).
type Lookup interface {
	Lookup(ctx context.Context, text string) ([]Candidate, error)
}

// Tier tables for the two candidate sources, kept as pure data so the
// scoring policy is testable without either real collaborator.
var (
	kbTiers = struct {
		AliasConfirmed float64
		Direct         float64
		Unconfirmed    float64
	}{AliasConfirmed: 0.75, Direct: 0.70, Unconfirmed: 0.55}

	searchTiers = struct {
		ExactLabel float64
		TopResult  float64
	}{ExactLabel: 0.85, TopResult: 0.65}
)
