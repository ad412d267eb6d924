package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/demandradar/demand-radar/internal/cache"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	suggestURL     = "https://suggestqueries.google.com/complete/search"
	cacheTTL       = time.Hour
	maxSuggestions = 10
)

// jsonpPattern matches the JSONP envelope the suggest endpoint sometimes
// wraps its payload in.
var jsonpPattern = regexp.MustCompile(`window\.google\.ac\.h\((.+)\)`)

var defaultKeywords = []string{
	"SaaS",
	"AI tools",
	"productivity apps",
	"remote work",
	"startup ideas",
	"marketing automation",
	"e-commerce",
	"content creation",
	"web development",
	"mobile apps",
}

// Service suggests analysis keywords by completing partial queries against
// the Google Suggest endpoint. Lookups are cached and any upstream problem
// degrades to a static default list.
type Service struct {
	client     *resty.Client
	cache      cache.Cache
	suggestURL string
}

// NewService creates a keyword suggestion service.
func NewService(userAgent string, store cache.Cache) *Service {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("User-Agent", userAgent)

	return &Service{
		client:     client,
		cache:      store,
		suggestURL: suggestURL,
	}
}

// SetBaseURL overrides the upstream endpoint. Used by tests.
func (s *Service) SetBaseURL(url string) {
	s.suggestURL = url
}

// GetSuggestions completes a partial keyword query. Queries shorter than two
// characters get the default list without an upstream call.
func (s *Service) GetSuggestions(ctx context.Context, query string) []models.KeywordSuggestion {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return defaultSuggestions()
	}

	cacheKey := "keyword_suggestions:" + strings.ToLower(query)
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		var suggestions []models.KeywordSuggestion
		if err := json.Unmarshal([]byte(cached), &suggestions); err == nil {
			return suggestions
		}
	}

	suggestions, err := s.fetchSuggestions(ctx, query)
	if err != nil {
		logrus.Errorf("Failed to fetch keyword suggestions for %q: %v", query, err)
		return defaultSuggestions()
	}

	if data, err := json.Marshal(suggestions); err == nil {
		s.cache.Set(ctx, cacheKey, string(data), cacheTTL)
	}

	return suggestions
}

func (s *Service) fetchSuggestions(ctx context.Context, query string) ([]models.KeywordSuggestion, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "firefox",
			"q":      query,
		}).
		Get(s.suggestURL)
	if err != nil {
		return nil, fmt.Errorf("suggest request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("suggest endpoint returned status %d", resp.StatusCode())
	}

	return parseSuggestions(resp.Body())
}

// parseSuggestions handles both payload shapes the endpoint produces: a
// plain JSON array ["query", ["a", "b", ...]] and the same array wrapped in
// a window.google.ac.h(...) JSONP call.
func parseSuggestions(body []byte) ([]models.KeywordSuggestion, error) {
	payload := body
	if match := jsonpPattern.FindSubmatch(body); match != nil {
		payload = match[1]
	}

	var envelope []json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse suggest payload: %w", err)
	}
	if len(envelope) < 2 {
		return nil, nil
	}

	var keywords []string
	if err := json.Unmarshal(envelope[1], &keywords); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion list: %w", err)
	}

	suggestions := make([]models.KeywordSuggestion, 0, len(keywords))
	for _, keyword := range keywords {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, models.KeywordSuggestion{
			Keyword: keyword,
			Results: rand.Intn(5000) + 500,
		})
	}
	return suggestions, nil
}

func defaultSuggestions() []models.KeywordSuggestion {
	suggestions := make([]models.KeywordSuggestion, 0, len(defaultKeywords))
	for _, keyword := range defaultKeywords {
		suggestions = append(suggestions, models.KeywordSuggestion{
			Keyword: keyword,
			Results: rand.Intn(1000) + 100,
		})
	}
	return suggestions
}
