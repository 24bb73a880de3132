package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultRetries      = 2
	retryPause          = 2 * time.Second
	maxBodyBytes        = 16 << 20
)

// Source is a single public subdomain data source.
type Source interface {
	Name() string
	Fetch(ctx context.Context, domain string) ([]string, error)
}

// fetcher is the shared bounded-timeout HTTP GET with retries used by all
// sources.
type fetcher struct {
	client  *http.Client
	retries int
}

func newFetcher(timeout time.Duration, retries int) fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if retries < 0 {
		retries = defaultRetries
	}
	return fetcher{client: &http.Client{Timeout: timeout}, retries: retries}
}

func (f fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(retryPause)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

// CrtShSource queries certificate transparency logs via crt.sh.
type CrtShSource struct {
	BaseURL string
	fetch   fetcher
}

// NewCrtShSource builds a crt.sh source; baseURL defaults to the public API.
func NewCrtShSource(baseURL string, timeout time.Duration) *CrtShSource {
	if baseURL == "" {
		baseURL = "https://crt.sh"
	}
	return &CrtShSource{BaseURL: baseURL, fetch: newFetcher(timeout, defaultRetries)}
}

func (s *CrtShSource) Name() string { return "crt.sh" }

// Fetch returns every name found in CT log entries for %.domain. A single
// entry's name_value may hold several newline-separated names.
func (s *CrtShSource) Fetch(ctx context.Context, domain string) ([]string, error) {
	u := fmt.Sprintf("%s/?q=%s&output=json", s.BaseURL, url.QueryEscape("%."+domain))
	body, err := s.fetch.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		NameValue string `json:"name_value"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode crt.sh response: %w", err)
	}

	var names []string
	for _, e := range entries {
		for _, name := range strings.Split(e.NameValue, "\n") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// HackerTargetSource queries the HackerTarget host search API.
type HackerTargetSource struct {
	BaseURL string
	fetch   fetcher
}

// NewHackerTargetSource builds a HackerTarget source.
func NewHackerTargetSource(baseURL string, timeout time.Duration) *HackerTargetSource {
	if baseURL == "" {
		baseURL = "https://api.hackertarget.com"
	}
	return &HackerTargetSource{BaseURL: baseURL, fetch: newFetcher(timeout, defaultRetries)}
}

func (s *HackerTargetSource) Name() string { return "hackertarget" }

// Fetch parses the "host,ip" CSV lines of the host search response.
func (s *HackerTargetSource) Fetch(ctx context.Context, domain string) ([]string, error) {
	u := fmt.Sprintf("%s/hostsearch/?q=%s", s.BaseURL, url.QueryEscape(domain))
	body, err := s.fetch.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(body), "\n") {
		host, _, _ := strings.Cut(strings.TrimSpace(line), ",")
		if host != "" {
			names = append(names, host)
		}
	}
	return names, nil
}

// ThreatCrowdSource queries the ThreatCrowd domain report API.
type ThreatCrowdSource struct {
	BaseURL string
	fetch   fetcher
}

// NewThreatCrowdSource builds a ThreatCrowd source.
func NewThreatCrowdSource(baseURL string, timeout time.Duration) *ThreatCrowdSource {
	if baseURL == "" {
		baseURL = "https://www.threatcrowd.org"
	}
	return &ThreatCrowdSource{BaseURL: baseURL, fetch: newFetcher(timeout, defaultRetries)}
}

func (s *ThreatCrowdSource) Name() string { return "threatcrowd" }

// Fetch returns the subdomains array of the domain report.
func (s *ThreatCrowdSource) Fetch(ctx context.Context, domain string) ([]string, error) {
	u := fmt.Sprintf("%s/searchApi/v2/domain/report/?domain=%s", s.BaseURL, url.QueryEscape(domain))
	body, err := s.fetch.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var report struct {
		Subdomains []string `json:"subdomains"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode threatcrowd response: %w", err)
	}
	return report.Subdomains, nil
}

// DefaultSources returns the standard source set.
func DefaultSources(timeout time.Duration) []Source {
	return []Source{
		NewCrtShSource("", timeout),
		NewHackerTargetSource("", timeout),
		NewThreatCrowdSource("", timeout),
	}
}
