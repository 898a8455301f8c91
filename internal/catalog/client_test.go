package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shows/show-1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"title":"Some Show","poster_url":"https://img/show-1.jpg"}`))
	})
	mux.HandleFunc("GET /api/shows/show-1/episodes/ep-2", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"title":"Some Show S01E02","poster_url":"https://img/ep-2.jpg"}`))
	})
	mux.HandleFunc("GET /api/movies/mov-1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"title":"Some Movie","poster_url":"https://img/mov-1.jpg"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestResolve(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits)
	client := NewClient(server.URL, nil, slog.Default())
	ctx := context.Background()

	content, err := client.Resolve(ctx, ContentTypeShow, "show-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Some Show", content.Title)

	content, err = client.Resolve(ctx, ContentTypeShow, "show-1", "ep-2")
	require.NoError(t, err)
	assert.Equal(t, "Some Show S01E02", content.Title)

	content, err = client.Resolve(ctx, ContentTypeMovie, "mov-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Some Movie", content.Title)

	_, err = client.Resolve(ctx, "podcast", "x", "")
	assert.ErrorIs(t, err, ErrInvalidContentReference)
}

func TestFetchNotFound(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits)
	client := NewClient(server.URL, nil, slog.Default())

	_, err := client.Resolve(context.Background(), ContentTypeMovie, "no-such", "")
	assert.ErrorIs(t, err, ErrInvalidContentReference, "a 404 must map to the invalid reference error")
}

func TestCacheSkipsSecondFetch(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits)

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	cache := redis.NewClient(&redis.Options{Addr: s.Addr()})

	client := NewClient(server.URL, cache, slog.Default())
	ctx := context.Background()

	content, err := client.GetShow(ctx, "show-1")
	require.NoError(t, err)
	assert.Equal(t, "Some Show", content.Title)
	assert.Equal(t, int64(1), hits.Load())

	content, err = client.GetShow(ctx, "show-1")
	require.NoError(t, err)
	assert.Equal(t, "Some Show", content.Title)
	assert.Equal(t, int64(1), hits.Load(), "second lookup must be served from cache")

	// entries expire, a cold cache goes back to the catalog
	s.FastForward(client.cacheTTL + 1)
	_, err = client.GetShow(ctx, "show-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestCacheFailureDegradesToFetch(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits)

	s, err := miniredis.Run()
	require.NoError(t, err)
	cache := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close() // cache is down from the start

	client := NewClient(server.URL, cache, slog.Default())

	content, err := client.GetMovie(context.Background(), "mov-1")
	require.NoError(t, err, "a dead cache must not fail the lookup")
	assert.Equal(t, "Some Movie", content.Title)
	assert.Equal(t, int64(1), hits.Load())
}
