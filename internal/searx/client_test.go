package searx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pagedBackend serves ResultsPerPage results per page up to total.
type pagedBackend struct {
	mu    sync.Mutex
	pages []int
	total int
}

func (b *pagedBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "google", q.Get("engines"))
		assert.NotEmpty(t, q.Get("q"))

		var pageno int
		_, err := fmt.Sscanf(q.Get("pageno"), "%d", &pageno)
		require.NoError(t, err)
		b.mu.Lock()
		b.pages = append(b.pages, pageno)
		b.mu.Unlock()

		start := (pageno - 1) * ResultsPerPage
		var results []searxResult
		for i := start; i < start+ResultsPerPage && i < b.total; i++ {
			results = append(results, searxResult{
				Title:   fmt.Sprintf("result %d", i),
				URL:     fmt.Sprintf("https://example.org/%d", i),
				Content: "snippet",
			})
		}
		_ = json.NewEncoder(w).Encode(searxResponse{Query: q.Get("q"), Results: results})
	}
}

func TestSearchPagesUntilCap(t *testing.T) {
	backend := &pagedBackend{total: 40}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()
	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	results, err := c.Search(context.Background(), "swallows", 20)
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.Equal(t, []int{1, 2, 3}, backend.pages, "20 results need three 8-result pages")
	assert.Equal(t, "https://example.org/0", results[0].URL, "rank order preserved")
	assert.Equal(t, "result 19", results[19].Title)
}

func TestSearchStopsOnShortPage(t *testing.T) {
	backend := &pagedBackend{total: 5}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()
	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	results, err := c.Search(context.Background(), "swallows", 20)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestSearchBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	_, err := c.Search(context.Background(), "q", 10)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSearchUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	_, err := c.Search(context.Background(), "q", 10)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestBuildSiteQuery(t *testing.T) {
	assert.Equal(t, "swallow speed", BuildSiteQuery("swallow speed", nil, nil))

	assert.Equal(t,
		"swallow speed site:example.org OR site:birds.net",
		BuildSiteQuery("swallow speed", []string{"example.org", "birds.net"}, nil))

	assert.Equal(t,
		"swallow speed -site:spam.net",
		BuildSiteQuery("swallow speed", nil, []string{"spam.net"}))

	assert.Equal(t,
		"swallow speed site:example.org -site:spam.net",
		BuildSiteQuery("swallow speed", []string{"example.org"}, []string{"spam.net"}))
}
