package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/demandradar/demand-radar/internal/cache"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	authURL       = "https://www.reddit.com/api/v1/access_token"
	apiBaseURL    = "https://oauth.reddit.com"
	nameSearchURL = "https://www.reddit.com/api/search_reddit_names.json"

	tokenCacheKey = "reddit:token"
	// Refresh the cached token a minute before Reddit expires it.
	tokenExpirySlack = time.Minute

	searchCacheTTL = 7 * 24 * time.Hour
)

// UpstreamError reports a non-success status from the Reddit API.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("reddit API returned status %d", e.Status)
}

// Client talks to the Reddit API. Access tokens come from a cached
// client-credentials exchange; raw payloads are parsed into typed items at
// this boundary so nothing loosely-typed propagates inward.
type Client struct {
	clientID     string
	clientSecret string
	userAgent    string
	client       *resty.Client
	cache        cache.Cache

	authURL       string
	apiBaseURL    string
	nameSearchURL string
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type rawPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Author        string  `json:"author"`
	Distinguished string  `json:"distinguished"`
	Subreddit     string  `json:"subreddit"`
	URL           string  `json:"url"`
	Created       float64 `json:"created_utc"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
}

type rawComment struct {
	ID      string  `json:"id"`
	Body    string  `json:"body"`
	Author  string  `json:"author"`
	Created float64 `json:"created_utc"`
	Score   int     `json:"score"`
}

// Post is a typed Reddit post straight off the wire, before enrichment.
type Post struct {
	ID            string
	Title         string
	Body          string
	Author        string
	Distinguished string
	Subreddit     string
	URL           string
	Score         int
	NumComments   int
	CreatedAt     time.Time
}

// Comment is a typed Reddit comment straight off the wire.
type Comment struct {
	ID        string
	Body      string
	Author    string
	Score     int
	CreatedAt time.Time
}

// NewClient creates a Reddit API client.
func NewClient(clientID, clientSecret, userAgent string, tokenCache cache.Cache) *Client {
	return &Client{
		clientID:      clientID,
		clientSecret:  clientSecret,
		userAgent:     userAgent,
		client:        resty.New().SetTimeout(30 * time.Second),
		cache:         tokenCache,
		authURL:       authURL,
		apiBaseURL:    apiBaseURL,
		nameSearchURL: nameSearchURL,
	}
}

// SetBaseURLs overrides the Reddit endpoints, used by tests.
func (c *Client) SetBaseURLs(auth, api, nameSearch string) {
	c.authURL = auth
	c.apiBaseURL = api
	c.nameSearchURL = nameSearch
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cache.Get(ctx, tokenCacheKey); ok {
		return token, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.userAgent).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(c.authURL)

	if err != nil {
		return "", fmt.Errorf("reddit authentication failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", &UpstreamError{Status: resp.StatusCode()}
	}

	var authResp authResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return "", fmt.Errorf("failed to parse auth response: %w", err)
	}
	if authResp.AccessToken == "" {
		return "", fmt.Errorf("auth response contained no access token")
	}

	ttl := time.Duration(authResp.ExpiresIn)*time.Second - tokenExpirySlack
	if ttl > 0 {
		c.cache.Set(ctx, tokenCacheKey, authResp.AccessToken, ttl)
	}

	return authResp.AccessToken, nil
}

// ListNewPosts returns the newest posts of a subreddit, typed and validated.
func (c *Client) ListNewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.apiBaseURL, url.PathEscape(subreddit), limit)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", c.userAgent).
		Get(listURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Status: resp.StatusCode()}
	}

	var listing listingResponse
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse post listing: %w", err)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		var raw rawPost
		if err := json.Unmarshal(child.Data, &raw); err != nil {
			logrus.Warnf("Skipping malformed post payload in r/%s: %v", subreddit, err)
			continue
		}
		if raw.ID == "" {
			logrus.Warnf("Skipping post without id in r/%s", subreddit)
			continue
		}
		posts = append(posts, Post{
			ID:            raw.ID,
			Title:         raw.Title,
			Body:          raw.Selftext,
			Author:        raw.Author,
			Distinguished: raw.Distinguished,
			Subreddit:     raw.Subreddit,
			URL:           raw.URL,
			Score:         raw.Score,
			NumComments:   raw.NumComments,
			CreatedAt:     time.Unix(int64(raw.Created), 0).UTC(),
		})
	}

	return posts, nil
}

// ListComments returns the top-level comments of a post. Only children of
// kind "t1" are comments; "more" stubs are dropped here.
func (c *Client) ListComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	commentsURL := fmt.Sprintf("%s/comments/%s.json?limit=%d", c.apiBaseURL, url.PathEscape(postID), limit)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", c.userAgent).
		Get(commentsURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Status: resp.StatusCode()}
	}

	// The comments endpoint returns a two-element array: the post listing
	// followed by the comment listing.
	var listings []listingResponse
	if err := json.Unmarshal(resp.Body(), &listings); err != nil {
		return nil, fmt.Errorf("failed to parse comment listing: %w", err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []Comment
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var raw rawComment
		if err := json.Unmarshal(child.Data, &raw); err != nil {
			logrus.Warnf("Skipping malformed comment payload on post %s: %v", postID, err)
			continue
		}
		if raw.ID == "" {
			continue
		}
		comments = append(comments, Comment{
			ID:        raw.ID,
			Body:      raw.Body,
			Author:    raw.Author,
			Score:     raw.Score,
			CreatedAt: time.Unix(int64(raw.Created), 0).UTC(),
		})
	}

	return comments, nil
}

type nameSearchResponse struct {
	Names []string `json:"names"`
}

// SearchSubreddits suggests subreddit names for a query. Results are cached
// for a week since subreddit names change rarely.
func (c *Client) SearchSubreddits(ctx context.Context, query string) ([]string, error) {
	cleaned := normalizeQuery(query)
	if len(cleaned) < 2 {
		return nil, nil
	}

	cacheKey := "reddit:search:" + cleaned
	if cached, ok := c.cache.Get(ctx, cacheKey); ok {
		var names []string
		if err := json.Unmarshal([]byte(cached), &names); err == nil {
			return names, nil
		}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.userAgent).
		SetQueryParams(map[string]string{
			"query":           cleaned,
			"include_over_18": strconv.FormatBool(false),
		}).
		Get(c.nameSearchURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Status: resp.StatusCode()}
	}

	var searchResp nameSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse name search response: %w", err)
	}

	if len(searchResp.Names) > 0 {
		if data, err := json.Marshal(searchResp.Names); err == nil {
			c.cache.Set(ctx, cacheKey, string(data), searchCacheTTL)
		}
	}

	return searchResp.Names, nil
}

func normalizeQuery(query string) string {
	cleaned := strings.ToLower(strings.TrimSpace(query))
	return strings.TrimPrefix(cleaned, "r/")
}
