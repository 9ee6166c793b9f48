// Package enrich fetches authority identifiers for accepted entities. Each
// distinct QID is fetched exactly once per run regardless of how many
// mentions share it; failures degrade to empty identifiers with a note and
// never disturb the linking decision already made.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"vttlink/internal/linking"
	"vttlink/internal/logging"
	"vttlink/internal/wikidata"
)

// wantedProps maps Wikidata property IDs onto authority identifier names.
var wantedProps = map[string]string{
	"P214":  "viaf",
	"P244":  "lcnaf",
	"P496":  "orcid",
	"P1667": "tgn",
}

// Fetcher is the remote entity-data collaborator.
type Fetcher interface {
	FetchEntity(ctx context.Context, qid string) (*wikidata.Entity, error)
	Language() string
}

type cached struct {
	ids  map[string]string
	note string
}

// Enricher caches authority lookups for the duration of a run. Safe for
// concurrent use by the file workers.
type Enricher struct {
	fetcher Fetcher
	retry   linking.RetryPolicy
	logger  *slog.Logger

	mu      sync.Mutex
	cache   map[string]cached
	fetches int
	hits    int
}

// New creates an enricher around the shared entity-data client.
func New(fetcher Fetcher, retry linking.RetryPolicy, logger *slog.Logger) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		retry:   retry,
		logger:  logging.NewComponentLogger(logger, "enricher"),
		cache:   make(map[string]cached),
	}
}

// Enrich returns the authority identifiers for a QID plus a note when the
// fetch degraded. The returned map is a copy the caller may own.
func (e *Enricher) Enrich(ctx context.Context, qid string) (map[string]string, string) {
	qid = strings.TrimSpace(qid)
	if qid == "" {
		return map[string]string{}, ""
	}

	e.mu.Lock()
	if entry, ok := e.cache[qid]; ok {
		e.hits++
		e.mu.Unlock()
		return maps.Clone(entry.ids), entry.note
	}
	e.mu.Unlock()

	entry := e.fetch(ctx, qid)

	e.mu.Lock()
	// A concurrent worker may have fetched the same QID meanwhile; first
	// result wins so repeated runs stay deterministic.
	if existing, ok := e.cache[qid]; ok {
		e.hits++
		entry = existing
	} else {
		e.cache[qid] = entry
		e.fetches++
	}
	e.mu.Unlock()

	return maps.Clone(entry.ids), entry.note
}

// Stats reports fetch and cache-hit counts for the run summary.
func (e *Enricher) Stats() (fetches, cacheHits int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetches, e.hits
}

func (e *Enricher) fetch(ctx context.Context, qid string) cached {
	var entity *wikidata.Entity
	attempts, err := e.retry.Do(ctx, wikidata.IsRetriable, func() error {
		fetched, fetchErr := e.fetcher.FetchEntity(ctx, qid)
		if fetchErr != nil {
			return fetchErr
		}
		entity = fetched
		return nil
	})
	if err != nil {
		e.logger.Warn("authority enrichment failed",
			logging.String("qid", qid),
			logging.Int("attempts", attempts),
			logging.Error(err))
		return cached{
			ids:  map[string]string{},
			note: fmt.Sprintf("Authority enrichment unavailable after %d attempts", attempts),
		}
	}

	ids := make(map[string]string)
	for property, name := range wantedProps {
		values := entity.Claims[property]
		if len(values) > 0 {
			ids[name] = values[0]
		}
	}

	lang := e.fetcher.Language()
	if title, ok := entity.Sitelinks[lang+"wiki"]; ok {
		ids["wikipedia_"+lang] = fmt.Sprintf("https://%s.wikipedia.org/wiki/%s",
			lang, strings.ReplaceAll(title, " ", "_"))
	}
	ids["wikidata_url"] = "https://www.wikidata.org/wiki/" + qid

	return cached{ids: ids}
}
