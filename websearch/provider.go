// Package websearch provides the external web-search side of the
// informational pipeline: a provider contract, an HTTP implementation, a
// domain whitelist filter and a redis-backed result cache.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// Provider returns web results for a query. Implementations must respect ctx
// cancellation.
type Provider interface {
	Search(ctx context.Context, query string) ([]contractx.WebResult, error)
}

type Config struct {
	URL           string        `envconfig:"URL" split_words:"true"`
	Token         string        `envconfig:"TOKEN" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"8s"`
	MaxResults    int           `envconfig:"MAX_RESULTS" split_words:"true" default:"5"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" split_words:"true" default:"24h"`
	WhitelistPath string        `envconfig:"WHITELIST_PATH" split_words:"true"`
}

// HTTPProvider queries a JSON search API: GET {base}?q={query}&limit={n} with
// an optional bearer token, expecting {"results":[{title,url,snippet}]}.
type HTTPProvider struct {
	baseURL    string
	token      string
	maxResults int
	httpClient *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("websearch url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid websearch url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	return &HTTPProvider{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

func (p *HTTPProvider) Search(ctx context.Context, query string) ([]contractx.WebResult, error) {
	endpoint := p.baseURL + "?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(p.maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: web search request: %v", contractx.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: web search status %d", contractx.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]contractx.WebResult, 0, len(body.Results))
	for _, item := range body.Results {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		results = append(results, contractx.WebResult{
			Title: item.Title,
			URL:   item.URL,
			Snip:  item.Snippet,
		})
	}
	return results, nil
}
