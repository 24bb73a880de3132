// Package discover harvests subdomains of a target domain from public data
// sources, unions the findings and filters them down to names under the
// target domain.
package discover

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Harvester fans out to all configured sources concurrently, one goroutine
// per source, throttled by a shared rate limiter so bursts across domains
// stay polite.
type Harvester struct {
	sources []Source
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewHarvester wires a harvester. rps bounds outbound source queries per
// second (minimum 1).
func NewHarvester(sources []Source, rps int, logger *zap.SugaredLogger) *Harvester {
	if rps <= 0 {
		rps = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Harvester{
		sources: sources,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  logger,
	}
}

// Enumerate queries every source for domain, unions the results and returns
// the cleaned, sorted subdomain list. A failing source is logged and skipped;
// it never fails the enumeration.
func (h *Harvester) Enumerate(ctx context.Context, domain string) []string {
	domain = strings.ToLower(strings.TrimSpace(domain))

	found := make(map[string]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, src := range h.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			if err := h.limiter.Wait(ctx); err != nil {
				return
			}
			names, err := s.Fetch(ctx, domain)
			if err != nil {
				h.logger.Warnw("subdomain source failed", "source", s.Name(), "domain", domain, "error", err)
				return
			}
			mu.Lock()
			for _, n := range names {
				found[n] = struct{}{}
			}
			mu.Unlock()
			h.logger.Infow("subdomain source done", "source", s.Name(), "domain", domain, "names", len(names))
		}(src)
	}
	wg.Wait()

	return clean(found, domain)
}

// clean lowercases, drops wildcard entries and keeps only names under the
// target domain, returning them sorted for deterministic output.
func clean(found map[string]struct{}, domain string) []string {
	kept := make(map[string]struct{}, len(found))
	for name := range found {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.Contains(name, "*") {
			continue
		}
		if !strings.HasSuffix(name, domain) {
			continue
		}
		kept[name] = struct{}{}
	}

	out := make([]string, 0, len(kept))
	for name := range kept {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
