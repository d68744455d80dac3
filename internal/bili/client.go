// Package bili is the upstream adapter for the platform's public post
// stream. It fetches a creator's raw activity feed and individual article
// bodies, handling the session headers and pacing the upstream requires.
package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reouo/bilifeed/internal/httpx"
	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/ratelimit"
	"github.com/reouo/bilifeed/internal/retry"
)

const (
	// defaultBaseURL is the upstream API host.
	defaultBaseURL = "https://api.bilibili.com"
	// spaceOrigin is the Origin header for space-feed requests.
	spaceOrigin = "https://space.bilibili.com"
	// articleOrigin is the Origin header for article-view requests.
	articleOrigin = "https://www.bilibili.com"

	// featureFlags the space-feed endpoint expects. The set is what the web
	// client currently sends; the endpoint rejects requests without it.
	featureFlags = "itemOpusStyle,listOnlyfans,opusBigCover,onlyfansVote," +
		"forwardListHidden,decorationCard,commentsNewVersion,onlyfansAssetsV2," +
		"ugcDelete,onlyfansQaCard"

	// DefaultUserAgent is used when no client identity is configured.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"
)

// ErrUpstreamStatus is returned when the upstream answers with a non-2xx
// status or a non-zero payload code.
var ErrUpstreamStatus = errors.New("unexpected upstream response")

// errTransient marks responses worth retrying.
var errTransient = errors.New("transient upstream failure")

// Config holds the upstream client configuration.
type Config struct {
	// BaseURL overrides the API host. Used in tests.
	BaseURL string
	// Cookie is the opaque authenticated session credential.
	Cookie string
	// UserAgent is the client-identity header.
	UserAgent string
	// Timeout bounds each request.
	Timeout time.Duration
}

// Client talks to the upstream platform API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cookie     string
	userAgent  string
	pacer      ratelimit.Pacer
	logger     logger.Interface
}

// NewClient creates an upstream client. The pacer gates article fetches;
// the space feed itself is a single request per run and is not paced.
func NewClient(cfg Config, pacer ratelimit.Pacer, log logger.Interface) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: httpx.NewClient(&httpx.ClientConfig{Timeout: cfg.Timeout}),
		baseURL:    baseURL,
		cookie:     cfg.Cookie,
		userAgent:  userAgent,
		pacer:      pacer,
		logger:     log.WithComponent("bili"),
	}
}

// FetchSpaceFeed returns the creator's recent raw activity stream, one raw
// item per post, in upstream order.
func (c *Client) FetchSpaceFeed(ctx context.Context, creatorID string) ([]Item, error) {
	query := url.Values{}
	query.Set("offset", "")
	query.Set("host_mid", creatorID)
	query.Set("features", featureFlags)
	query.Set("timezone_offset", "-480")
	query.Set("platform", "web")
	query.Set("x-bili-device-req-json", `{"platform":"web","device":"pc"}`)

	endpoint := fmt.Sprintf("%s/x/polymer/web-dynamic/v1/feed/space?%s", c.baseURL, query.Encode())
	referer := fmt.Sprintf("%s/%s/dynamic", spaceOrigin, creatorID)

	var response spaceFeedResponse
	if err := c.getJSON(ctx, endpoint, referer, spaceOrigin, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch space feed for creator %s: %w", creatorID, err)
	}
	if response.Code != 0 {
		return nil, fmt.Errorf("%w: code %d (%s)", ErrUpstreamStatus, response.Code, response.Message)
	}

	c.logger.Debug("Fetched space feed", "creator_id", creatorID, "items", len(response.Data.Items))
	return response.Data.Items, nil
}

// FetchArticle returns one article body by identifier. Every call is gated
// by the pacer; do not bypass it, the upstream throttles unpaced article
// readers.
func (c *Client) FetchArticle(ctx context.Context, articleID string) (*Article, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to pace article fetch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/x/article/view?id=%s&gaia_source=main_web", c.baseURL, url.QueryEscape(articleID))
	referer := fmt.Sprintf("%s/read/cv%s/", articleOrigin, articleID)

	var response articleResponse
	if err := c.getJSON(ctx, endpoint, referer, articleOrigin, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", articleID, err)
	}
	if response.Code != 0 {
		return nil, fmt.Errorf("%w: code %d (%s)", ErrUpstreamStatus, response.Code, response.Message)
	}

	c.logger.Debug("Fetched article", "article_id", articleID)
	return &response.Data, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
// Transient failures (network errors, 5xx) are retried with backoff.
func (c *Client) getJSON(ctx context.Context, endpoint, referer, origin string, out any) error {
	cfg := retry.DefaultConfig()
	cfg.IsRetryable = func(err error) bool {
		return errors.Is(err, errTransient) || retry.DefaultIsRetryable(err)
	}

	return retry.Do(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Referer", referer)
		req.Header.Set("Origin", origin)
		if c.cookie != "" {
			req.Header.Set("Cookie", c.cookie)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", ErrUpstreamStatus, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}
