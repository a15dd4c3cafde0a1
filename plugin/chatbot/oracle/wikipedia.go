package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kiezfinder/kiezfinder/plugin/chatbot/cache"
)

const (
	defaultWikipediaBaseURL  = "https://en.wikipedia.org"
	defaultWikipediaTimeout  = 8 * time.Second
	defaultSummaryCacheTTL   = time.Hour
	disambiguationCandidates = 3
)

// WikipediaConfig holds the encyclopedia provider configuration.
type WikipediaConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WikipediaClient resolves search phrases to short article summaries via the
// REST summary endpoint, with the opensearch API supplying candidate titles
// when a query lands on a disambiguation page.
type WikipediaClient struct {
	config     WikipediaConfig
	httpClient *http.Client
	cache      *cache.LRUCache
}

// NewWikipediaClient creates an encyclopedia oracle.
func NewWikipediaClient(cfg WikipediaConfig) *WikipediaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWikipediaBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWikipediaTimeout
	}
	return &WikipediaClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache.New(128, defaultSummaryCacheTTL),
	}
}

// summaryPayload mirrors the REST page-summary response.
type summaryPayload struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Summarize returns a short summary for the query. ErrNotFound and
// DisambiguationError are distinguishable semantic outcomes; anything else
// is a transport failure.
func (c *WikipediaClient) Summarize(ctx context.Context, query string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return "", ErrNotFound
	}
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build summary request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "summary request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return "", errors.Errorf("encyclopedia provider returned status %d", resp.StatusCode)
	}

	var payload summaryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decode summary response")
	}

	if payload.Type == "disambiguation" {
		candidates, err := c.searchTitles(ctx, query)
		if err != nil {
			candidates = nil
		}
		return "", &DisambiguationError{Query: query, Candidates: candidates}
	}
	if payload.Extract == "" {
		return "", ErrNotFound
	}

	c.cache.Set(key, payload.Extract, 0)
	return payload.Extract, nil
}

// searchTitles asks the opensearch API for alternative titles, skipping the
// disambiguation page itself.
func (c *WikipediaClient) searchTitles(ctx context.Context, query string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/w/api.php?action=opensearch&format=json&limit=%d&search=%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		disambiguationCandidates+1,
		url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("search returned status %d", resp.StatusCode)
	}

	// Opensearch responses are positional: [query, titles, descriptions, urls].
	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}
	if len(raw) < 2 {
		return nil, errors.New("malformed search response")
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, errors.Wrap(err, "decode search titles")
	}

	candidates := make([]string, 0, disambiguationCandidates)
	for _, t := range titles {
		if strings.EqualFold(t, query) {
			continue
		}
		candidates = append(candidates, t)
		if len(candidates) == disambiguationCandidates {
			break
		}
	}
	return candidates, nil
}

// Ensure WikipediaClient implements Encyclopedia
var _ Encyclopedia = (*WikipediaClient)(nil)
