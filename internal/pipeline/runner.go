// Package pipeline drives the per-host assessment flow: reachability gate,
// local cache, poll loop, and immediate result write-out — strictly one host
// at a time, in input order.
package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/vhnguyen/sslsweep/internal/report"
	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

// Gate decides whether a host is eligible for assessment.
type Gate interface {
	IsReachable(ctx context.Context, host string) bool
}

// Assessor runs one scan session and always returns a well-formed snapshot.
type Assessor interface {
	Assess(ctx context.Context, host string) *ssllabs.AssessmentResult
}

// ResultWriter persists one record per host as soon as its session ends.
type ResultWriter interface {
	WriteResult(host string, summary report.Summary, raw []byte) error
	WriteUnreachable(host string) error
}

// CacheStore is the optional local store of completed assessments.
type CacheStore interface {
	Get(host string) (*ssllabs.AssessmentResult, bool)
	Put(host string, res *ssllabs.AssessmentResult) error
}

// Runner processes a deduplicated, order-preserving host sequence. Every host
// yields exactly one record; no per-host failure aborts the run.
type Runner struct {
	Gate     Gate
	Assessor Assessor
	Cache    CacheStore // optional
	Writer   ResultWriter
	Logger   *zap.SugaredLogger

	// OnHostStart, when set, is invoked before a host's session begins.
	OnHostStart func(host string)
	// OnHostDone, when set, is invoked after each host's record is written.
	OnHostDone func(host string, summary report.Summary)
}

// Run processes hosts serially and returns the summary rows in input order.
// It stops early only when ctx is done.
func (r *Runner) Run(ctx context.Context, hosts []string) ([]report.Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	rows := make([]report.Summary, 0, len(hosts))
	for _, host := range hosts {
		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		default:
		}

		if r.OnHostStart != nil {
			r.OnHostStart(host)
		}
		summary := r.processHost(ctx, logger, host)
		rows = append(rows, summary)
		if r.OnHostDone != nil {
			r.OnHostDone(host, summary)
		}
	}
	return rows, nil
}

func (r *Runner) processHost(ctx context.Context, logger *zap.SugaredLogger, host string) report.Summary {
	if r.Cache != nil {
		if res, ok := r.Cache.Get(host); ok && res.Status == ssllabs.StatusReady {
			logger.Infow("served from local cache", "host", host)
			summary := report.FromResult(res)
			if err := r.Writer.WriteResult(host, summary, rawPayload(res)); err != nil {
				logger.Errorw("write result failed", "host", host, "error", err)
			}
			return summary
		}
	}

	if !r.Gate.IsReachable(ctx, host) {
		logger.Infow("https not reachable, skipping assessment", "host", host)
		if err := r.Writer.WriteUnreachable(host); err != nil {
			logger.Errorw("write placeholder failed", "host", host, "error", err)
		}
		return report.NoHTTPS(host)
	}

	logger.Infow("starting assessment", "host", host)
	res := r.Assessor.Assess(ctx, host)
	summary := report.FromResult(res)

	if err := r.Writer.WriteResult(host, summary, rawPayload(res)); err != nil {
		logger.Errorw("write result failed", "host", host, "error", err)
	}

	if r.Cache != nil && res.Status == ssllabs.StatusReady && len(res.Warnings) == 0 {
		if err := r.Cache.Put(host, res); err != nil {
			logger.Warnw("cache write failed", "host", host, "error", err)
		}
	}

	logger.Infow("assessment complete", "host", host, "status", res.Status, "grade", summary.Grade)
	return summary
}

// rawPayload returns the verbatim payload when present, otherwise a marshaled
// snapshot, so the export stream always carries the full result.
func rawPayload(res *ssllabs.AssessmentResult) []byte {
	if len(res.Raw) > 0 && len(res.Warnings) == 0 {
		return res.Raw
	}
	encoded, err := json.Marshal(res)
	if err != nil {
		return res.Raw
	}
	return encoded
}
