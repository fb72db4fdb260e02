// Package reddit implements the feed-provider client: listing fetches,
// typed response decoding, and the app-only OAuth session.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	publicBase = "https://www.reddit.com"
	oauthBase  = "https://oauth.reddit.com"
	tokenURL   = "https://www.reddit.com/api/v1/access_token"

	// Refresh the token a bit before Reddit expires it.
	tokenSlack = 2 * time.Minute
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches subreddit listings. With credentials configured it uses
// the OAuth API with an application-only token, acquired lazily and
// refreshed near expiry; without credentials it reads the public JSON
// endpoints.
type Client struct {
	client    HTTPClient
	clientID  string
	secret    string
	userAgent string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Client. clientID and secret may be empty for
// unauthenticated, read-only operation.
func New(client HTTPClient, clientID, secret, userAgent string) *Client {
	return &Client{
		client:    client,
		clientID:  clientID,
		secret:    secret,
		userAgent: userAgent,
	}
}

// NewPosts fetches the most recent posts from a subreddit, bounded to
// limit items. Session acquisition failures are returned like any other
// fetch error; the next call retries from scratch.
func (c *Client) NewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	base := publicBase
	token := ""
	if c.clientID != "" {
		t, err := c.ensureToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("reddit session: %w", err)
		}
		base = oauthBase
		token = t
	}

	u := fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=0", base, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for r/%s", resp.StatusCode, subreddit)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// ensureToken returns a valid application-only token, requesting a new
// one when the cached token is absent or near expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request status %d", resp.StatusCode)
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(&tr); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.token, nil
}
