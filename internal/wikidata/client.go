// Package wikidata provides the remote search and entity-data clients. One
// client instance is shared across workers; it enforces a minimum interval
// between requests so the whole run stays inside the API's rate budget.
package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL     = "https://www.wikidata.org"
	defaultUserAgent   = "vttlink/1.0 (transcript entity linking)"
	defaultTimeout     = 15 * time.Second
	defaultMinInterval = 100 * time.Millisecond
	defaultSearchLimit = 10
)

// SearchResult is one ranked hit from the wbsearchentities endpoint.
type SearchResult struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Aliases []string `json:"aliases"`
}

// Entity is the subset of an EntityData record the enricher consumes.
type Entity struct {
	Claims    map[string][]string
	Sitelinks map[string]string
}

// Client talks to the Wikidata APIs.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client

	mu          sync.Mutex
	lastCall    time.Time
	minInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinInterval overrides the pacing interval between requests.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval >= 0 {
			c.minInterval = interval
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(agent) != "" {
			c.userAgent = agent
		}
	}
}

// New creates a Wikidata client. language selects search and sitelink
// language; empty defaults to "en".
func New(baseURL, language string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = "en"
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   defaultUserAgent,
		language:    language,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		minInterval: defaultMinInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Language returns the configured search/sitelink language.
func (c *Client) Language() string { return c.language }

// Search queries wbsearchentities for items matching query.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", query)
	params.Set("language", c.language)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(defaultSearchLimit))
	params.Set("type", "item")

	var payload struct {
		Search []SearchResult `json:"search"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/w/api.php?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("wikidata search %q: %w", query, err)
	}
	return payload.Search, nil
}

// FetchEntity retrieves the EntityData record for a QID and flattens the
// claim values and sitelink URLs the enricher needs.
func (c *Client) FetchEntity(ctx context.Context, qid string) (*Entity, error) {
	qid = strings.TrimSpace(qid)
	if qid == "" {
		return nil, errors.New("qid must not be empty")
	}

	var payload struct {
		Entities map[string]struct {
			Claims map[string][]struct {
				Mainsnak struct {
					Datavalue struct {
						Value json.RawMessage `json:"value"`
					} `json:"datavalue"`
				} `json:"mainsnak"`
			} `json:"claims"`
			Sitelinks map[string]struct {
				Title string `json:"title"`
			} `json:"sitelinks"`
		} `json:"entities"`
	}
	endpoint := c.baseURL + "/wiki/Special:EntityData/" + url.PathEscape(qid) + ".json"
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("wikidata entity %s: %w", qid, err)
	}

	record, ok := payload.Entities[qid]
	if !ok {
		return nil, fmt.Errorf("wikidata entity %s: missing from response", qid)
	}

	entity := &Entity{
		Claims:    make(map[string][]string, len(record.Claims)),
		Sitelinks: make(map[string]string, len(record.Sitelinks)),
	}
	for property, snaks := range record.Claims {
		for _, snak := range snaks {
			value, ok := scalarClaimValue(snak.Mainsnak.Datavalue.Value)
			if !ok {
				continue
			}
			entity.Claims[property] = append(entity.Claims[property], value)
		}
	}
	for site, link := range record.Sitelinks {
		if link.Title != "" {
			entity.Sitelinks[site] = link.Title
		}
	}
	return entity, nil
}

// scalarClaimValue keeps string and numeric claim values; entity-reference
// values (objects with an "id") are not authority identifiers and are dropped.
func scalarClaimValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, text != ""
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String(), true
	}
	return "", false
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.waitForWindow(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	c.markCall()
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) waitForWindow(ctx context.Context) error {
	c.mu.Lock()
	lastCall := c.lastCall
	c.mu.Unlock()
	if lastCall.IsZero() {
		return nil
	}
	elapsed := time.Since(lastCall)
	if elapsed >= c.minInterval {
		return nil
	}
	return SleepWithContext(ctx, c.minInterval-elapsed)
}

func (c *Client) markCall() {
	c.mu.Lock()
	c.lastCall = time.Now()
	c.mu.Unlock()
}

// SleepWithContext sleeps for the given duration unless the context ends.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
