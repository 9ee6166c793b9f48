package wikidata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "wbsearchentities" {
			t.Errorf("action = %q", got)
		}
		if got := r.URL.Query().Get("search"); got != "Eleanor Rathbone" {
			t.Errorf("search = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"search":[
			{"id":"Q336252","label":"Eleanor Rathbone","aliases":["Eleanor Florence Rathbone"]},
			{"id":"Q1","label":"other"}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "en", WithMinInterval(0))
	results, err := client.Search(context.Background(), "Eleanor Rathbone")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "Q336252" || results[0].Label != "Eleanor Rathbone" {
		t.Errorf("first result = %+v", results[0])
	}
	if len(results[0].Aliases) != 1 {
		t.Errorf("aliases = %v", results[0].Aliases)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := New("http://unused.invalid", "en")
	if _, err := client.Search(context.Background(), "  "); err == nil {
		t.Fatal("Search should reject an empty query")
	}
}

func TestSearchStatusErrorsRetriable(t *testing.T) {
	cases := []struct {
		status    int
		retriable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := New(server.URL, "en", WithMinInterval(0))
		_, err := client.Search(context.Background(), "anything")
		server.Close()
		if err == nil {
			t.Fatalf("status %d should surface an error", tc.status)
		}
		if got := IsRetriable(err); got != tc.retriable {
			t.Errorf("IsRetriable(status %d) = %v, want %v", tc.status, got, tc.retriable)
		}
	}
}

func TestTransportFailureRetriable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL, "en", WithMinInterval(0))
	_, err := client.Search(context.Background(), "anything")
	if err == nil {
		t.Fatal("request to closed server should fail")
	}
	if !IsRetriable(err) {
		t.Errorf("transport failure should be retriable: %v", err)
	}
}

func TestIsRetriableContextErrors(t *testing.T) {
	if IsRetriable(nil) {
		t.Error("nil error is not retriable")
	}
	if IsRetriable(context.Canceled) {
		t.Error("context cancellation is not retriable")
	}
	if IsRetriable(context.DeadlineExceeded) {
		t.Error("context deadline is not retriable")
	}
	if IsRetriable(errors.New("plain failure")) {
		t.Error("unclassified errors are not retriable")
	}
}

func TestFetchEntityFlattensClaimsAndSitelinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wiki/Special:EntityData/Q336252.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":{"Q336252":{
			"claims":{
				"P214":[{"mainsnak":{"datavalue":{"value":"44373656"}}}],
				"P31":[{"mainsnak":{"datavalue":{"value":{"id":"Q5"}}}}]
			},
			"sitelinks":{
				"enwiki":{"title":"Eleanor Rathbone"},
				"dewiki":{"title":"Eleanor Rathbone"}
			}
		}}}`))
	}))
	defer server.Close()

	client := New(server.URL, "en", WithMinInterval(0))
	entity, err := client.FetchEntity(context.Background(), "Q336252")
	if err != nil {
		t.Fatalf("FetchEntity failed: %v", err)
	}
	if got := entity.Claims["P214"]; len(got) != 1 || got[0] != "44373656" {
		t.Errorf("P214 = %v", got)
	}
	// Entity-reference claim values are dropped, not flattened.
	if got := entity.Claims["P31"]; len(got) != 0 {
		t.Errorf("P31 = %v, want none", got)
	}
	if got := entity.Sitelinks["enwiki"]; got != "Eleanor Rathbone" {
		t.Errorf("enwiki sitelink = %q", got)
	}
}

func TestFetchEntityMissingFromResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":{}}`))
	}))
	defer server.Close()

	client := New(server.URL, "en", WithMinInterval(0))
	if _, err := client.FetchEntity(context.Background(), "Q404"); err == nil {
		t.Fatal("FetchEntity should fail when the entity is absent")
	}
}
