package websearch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	"gopkg.in/yaml.v3"
)

type whitelistFile struct {
	Domains []string `yaml:"domains"`
}

// LoadWhitelist reads the allowed-domain list from a yaml file of the form
// `domains: [fss.or.kr, hf.go.kr]`.
func LoadWhitelist(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}
	var parsed whitelistFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse whitelist %s: %w", path, err)
	}

	domains := make([]string, 0, len(parsed.Domains))
	for _, domain := range parsed.Domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	return domains, nil
}

// WhitelistProvider drops results whose host is not covered by the allowed
// domains. An empty domain list passes everything through.
type WhitelistProvider struct {
	inner   Provider
	domains []string
}

var _ Provider = (*WhitelistProvider)(nil)

func NewWhitelistProvider(inner Provider, domains []string) *WhitelistProvider {
	return &WhitelistProvider{inner: inner, domains: domains}
}

func (p *WhitelistProvider) Search(ctx context.Context, query string) ([]contractx.WebResult, error) {
	results, err := p.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(p.domains) == 0 {
		return results, nil
	}

	filtered := make([]contractx.WebResult, 0, len(results))
	for _, result := range results {
		if p.allowed(result.URL) {
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}

func (p *WhitelistProvider) allowed(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range p.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
