package assess

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

// ScanClient is the slice of the remote assessment client the poller needs.
type ScanClient interface {
	FromCache(ctx context.Context, host string) (*ssllabs.AssessmentResult, ssllabs.Class)
	SubmitOrAttach(ctx context.Context, host string) (*ssllabs.AssessmentResult, ssllabs.Class)
}

// Config holds the timing knobs of a scan session.
type Config struct {
	// PollInterval is the fixed wait between status polls.
	PollInterval time.Duration
	// BackoffFloor is the first wait after a quota violation.
	BackoffFloor time.Duration
	// BackoffCeiling caps the escalating quota wait.
	BackoffCeiling time.Duration
	// MaxPollTime is the wall-clock ceiling for one session. When reached,
	// the last-known snapshot is returned with a warning appended.
	MaxPollTime time.Duration
}

// Defaults matching the service's observed pacing.
const (
	DefaultPollInterval   = 30 * time.Second
	DefaultBackoffFloor   = 60 * time.Second
	DefaultBackoffCeiling = 10 * time.Minute
	DefaultMaxPollTime    = 20 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BackoffFloor <= 0 {
		c.BackoffFloor = DefaultBackoffFloor
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = DefaultBackoffCeiling
	}
	if c.MaxPollTime <= 0 {
		c.MaxPollTime = DefaultMaxPollTime
	}
	return c
}

// Poller drives a single host's assessment from submission to a terminal
// state. Hosts are processed strictly serially: the remote service enforces a
// shared concurrency quota, so parallel sessions would only multiply quota
// violations without improving throughput. All waits block the calling
// goroutine.
type Poller struct {
	client ScanClient
	clock  Clock
	cfg    Config
	logger *zap.SugaredLogger
}

// NewPoller wires a poller. A nil clock selects SystemClock.
func NewPoller(client ScanClient, clock Clock, cfg Config, logger *zap.SugaredLogger) *Poller {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Poller{client: client, clock: clock, cfg: cfg.withDefaults(), logger: logger}
}

// Assess runs one scan session for host and always returns a well-formed
// snapshot: the cached result, the terminal result, a synthetic ERROR result
// on transport failure, or the last-known snapshot annotated with a warning
// when the polling ceiling is reached.
func (p *Poller) Assess(ctx context.Context, host string) *ssllabs.AssessmentResult {
	// Cache check: a completed assessment short-circuits the session
	// entirely; no submission is made.
	if cached, class := p.client.FromCache(ctx, host); class == ssllabs.ClassTerminal && cached.Status == ssllabs.StatusReady {
		p.logger.Infow("served from remote cache", "host", host)
		return cached
	}

	backoff := NewBackoff(p.cfg.BackoffFloor, p.cfg.BackoffCeiling)
	started := p.clock.Now()
	attempt := 0
	// Last in-progress snapshot; non-nil once the session is past submission.
	var last *ssllabs.AssessmentResult

	res, class := p.client.SubmitOrAttach(ctx, host)
	for {
		switch class {
		case ssllabs.ClassTransportFailure:
			// Immediately terminal; the synthetic ERROR snapshot carries
			// the failure description.
			return res

		case ssllabs.ClassQuotaExceeded:
			// Once polling has begun the session ceiling bounds quota waits
			// too; a persistently saturated service cannot pin the pipeline.
			if last != nil && p.clock.Now().Sub(started) >= p.cfg.MaxPollTime {
				return p.ceilingReached(host, last, attempt)
			}
			wait := backoff.NextWait()
			p.logger.Infow("assessment quota reached, backing off",
				"host", host, "wait", wait)
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return interrupted(res, err)
			}
			res, class = p.client.SubmitOrAttach(ctx, host)
			continue

		case ssllabs.ClassTerminal:
			return res
		}

		// In progress. Enforce the session ceiling before waiting again so
		// an unbounded remote assessment cannot pin the pipeline.
		last = res
		if p.clock.Now().Sub(started) >= p.cfg.MaxPollTime {
			return p.ceilingReached(host, res, attempt)
		}

		attempt++
		p.logger.Infow("assessment in progress", "host", host,
			"status", statusOrUnknown(res.Status), "poll", attempt,
			"wait", p.cfg.PollInterval)
		if err := p.clock.Sleep(ctx, p.cfg.PollInterval); err != nil {
			return interrupted(res, err)
		}
		res, class = p.client.SubmitOrAttach(ctx, host)
	}
}

func (p *Poller) ceilingReached(host string, res *ssllabs.AssessmentResult, polls int) *ssllabs.AssessmentResult {
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("Stopped polling after %s.", p.cfg.MaxPollTime))
	p.logger.Warnw("polling ceiling reached", "host", host,
		"status", res.Status, "polls", polls)
	return res
}

func interrupted(res *ssllabs.AssessmentResult, err error) *ssllabs.AssessmentResult {
	res.Warnings = append(res.Warnings, fmt.Sprintf("Assessment interrupted: %v.", err))
	return res
}

func statusOrUnknown(status string) string {
	if status == "" {
		return "UNKNOWN"
	}
	return status
}
