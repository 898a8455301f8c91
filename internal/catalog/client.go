// Package catalog resolves display metadata (title, poster) for the content
// a room is watching from the catalog web application. The lookup is purely
// cosmetic: a failed or slow catalog degrades the room header, never room
// function.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidContentReference = errors.New("invalid content reference")

const (
	ContentTypeShow  = "show"
	ContentTypeMovie = "movie"
)

type Content struct {
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

type Client struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewClient builds a catalog client. cache may be nil, in which case every
// lookup goes to the catalog service.
func NewClient(baseURL string, cache *redis.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		cache:    cache,
		cacheTTL: time.Hour,
		logger:   logger,
	}
}

func (c *Client) GetShow(ctx context.Context, id string) (Content, error) {
	return c.get(ctx, fmt.Sprintf("catalog:show:%s", id), fmt.Sprintf("%s/api/shows/%s", c.baseURL, id))
}

func (c *Client) GetMovie(ctx context.Context, id string) (Content, error) {
	return c.get(ctx, fmt.Sprintf("catalog:movie:%s", id), fmt.Sprintf("%s/api/movies/%s", c.baseURL, id))
}

func (c *Client) GetEpisode(ctx context.Context, showID, episodeID string) (Content, error) {
	return c.get(ctx,
		fmt.Sprintf("catalog:episode:%s:%s", showID, episodeID),
		fmt.Sprintf("%s/api/shows/%s/episodes/%s", c.baseURL, showID, episodeID),
	)
}

// Resolve maps a room's content reference to its display metadata.
func (c *Client) Resolve(ctx context.Context, contentType, contentID, episodeID string) (Content, error) {
	switch contentType {
	case ContentTypeMovie:
		return c.GetMovie(ctx, contentID)
	case ContentTypeShow:
		if episodeID != "" {
			return c.GetEpisode(ctx, contentID, episodeID)
		}
		return c.GetShow(ctx, contentID)
	default:
		return Content{}, fmt.Errorf("%w: unknown content type %q", ErrInvalidContentReference, contentType)
	}
}

func (c *Client) get(ctx context.Context, cacheKey, url string) (Content, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var content Content
			if err := json.Unmarshal(cached, &content); err == nil {
				return content, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "catalog cache read failed", "key", cacheKey, "error", err)
		}
	}

	content, err := c.fetch(ctx, url)
	if err != nil {
		return Content{}, err
	}

	if c.cache != nil {
		data, _ := json.Marshal(content)
		if err := c.cache.Set(ctx, cacheKey, data, c.cacheTTL).Err(); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed", "key", cacheKey, "error", err)
		}
	}

	return content, nil
}

func (c *Client) fetch(ctx context.Context, url string) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Content{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Content{}, ErrInvalidContentReference
	case resp.StatusCode != http.StatusOK:
		return Content{}, fmt.Errorf("catalog responded with %d", resp.StatusCode)
	}

	var content Content
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return Content{}, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return content, nil
}
