package assess

import (
	"context"
	"testing"
	"time"

	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

// fakeClock advances its notion of time by exactly the slept duration, so
// tests simulate hours of polling without real delays.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type response struct {
	res   *ssllabs.AssessmentResult
	class ssllabs.Class
}

// scriptedClient replays a fixed sequence of submit responses and counts
// calls. When the script runs out it keeps returning the last response.
type scriptedClient struct {
	cache       response
	script      []response
	cacheCalls  int
	submitCalls int
}

func (c *scriptedClient) FromCache(context.Context, string) (*ssllabs.AssessmentResult, ssllabs.Class) {
	c.cacheCalls++
	if c.cache.res == nil {
		return &ssllabs.AssessmentResult{Status: ssllabs.StatusError}, ssllabs.ClassTransportFailure
	}
	return c.cache.res, c.cache.class
}

func (c *scriptedClient) SubmitOrAttach(context.Context, string) (*ssllabs.AssessmentResult, ssllabs.Class) {
	idx := c.submitCalls
	c.submitCalls++
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	return c.script[idx].res, c.script[idx].class
}

func snapshot(status string) *ssllabs.AssessmentResult {
	return &ssllabs.AssessmentResult{Host: "a.example.com", Status: status}
}

func quotaSnapshot() *ssllabs.AssessmentResult {
	return &ssllabs.AssessmentResult{
		Host:   "a.example.com",
		Errors: []ssllabs.APIError{{Message: "Running at full capacity. Concurrent assessment limit reached."}},
	}
}

func testConfig() Config {
	return Config{
		PollInterval:   30 * time.Second,
		BackoffFloor:   60 * time.Second,
		BackoffCeiling: 600 * time.Second,
		MaxPollTime:    20 * time.Minute,
	}
}

func TestAssessReadyOnFirstSubmit(t *testing.T) {
	client := &scriptedClient{
		cache:  response{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
		script: []response{{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal}},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusReady {
		t.Fatalf("status = %q, want READY", res.Status)
	}
	if client.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", client.submitCalls)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("slept %v, want no sleeps", clock.sleeps)
	}
}

func TestAssessCacheHitSkipsSubmission(t *testing.T) {
	client := &scriptedClient{
		cache: response{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusReady {
		t.Fatalf("status = %q, want READY", res.Status)
	}
	if client.submitCalls != 0 {
		t.Errorf("submit calls = %d, want 0", client.submitCalls)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("slept %v, want no sleeps", clock.sleeps)
	}
}

func TestAssessQuotaBackoffEscalates(t *testing.T) {
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusReady {
		t.Fatalf("status = %q, want READY", res.Status)
	}
	want := []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, clock.sleeps[i], want[i])
		}
		if i > 0 && clock.sleeps[i] < clock.sleeps[i-1] {
			t.Errorf("backoff wait decreased: %v after %v", clock.sleeps[i], clock.sleeps[i-1])
		}
	}
	if client.submitCalls != 4 {
		t.Errorf("submit calls = %d, want 4", client.submitCalls)
	}
}

func TestAssessBackoffNeverExceedsCeiling(t *testing.T) {
	script := make([]response, 0, 13)
	for i := 0; i < 12; i++ {
		script = append(script, response{quotaSnapshot(), ssllabs.ClassQuotaExceeded})
	}
	script = append(script, response{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal})

	client := &scriptedClient{
		cache:  response{snapshot(""), ssllabs.ClassInProgress},
		script: script,
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	p.Assess(context.Background(), "a.example.com")

	for i, d := range clock.sleeps {
		if d > 600*time.Second {
			t.Errorf("sleep %d = %v exceeds ceiling", i, d)
		}
	}
	if last := clock.sleeps[len(clock.sleeps)-1]; last != 600*time.Second {
		t.Errorf("final backoff wait = %v, want ceiling 600s", last)
	}
}

func TestAssessPollsUntilReady(t *testing.T) {
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusReady {
		t.Fatalf("status = %q, want READY", res.Status)
	}
	if client.submitCalls != 3 {
		t.Errorf("submit calls = %d, want 3", client.submitCalls)
	}
	want := []time.Duration{30 * time.Second, 30 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestAssessPollingCeilingAppendsWarning(t *testing.T) {
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	start := clock.Now()
	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusInProgress {
		t.Errorf("status = %q, want last-seen IN_PROGRESS preserved", res.Status)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one timeout warning", res.Warnings)
	}
	if elapsed := clock.Now().Sub(start); elapsed > 21*time.Minute {
		t.Errorf("simulated elapsed time %v exceeds ceiling + one interval", elapsed)
	}
}

func TestAssessTransportFailureDuringSubmitIsTerminal(t *testing.T) {
	errRes := &ssllabs.AssessmentResult{
		Host:   "a.example.com",
		Status: ssllabs.StatusError,
		Errors: []ssllabs.APIError{{Message: "analyze call: connection refused"}},
	}
	client := &scriptedClient{
		cache:  response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{{errRes, ssllabs.ClassTransportFailure}},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusError {
		t.Fatalf("status = %q, want ERROR", res.Status)
	}
	if client.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1 (no retry after transport failure)", client.submitCalls)
	}
}

func TestAssessTransportFailureMidPollStopsPolling(t *testing.T) {
	errRes := &ssllabs.AssessmentResult{
		Host:   "a.example.com",
		Status: ssllabs.StatusError,
		Errors: []ssllabs.APIError{{Message: "analyze call: timeout"}},
	}
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{errRes, ssllabs.ClassTransportFailure},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusError {
		t.Fatalf("status = %q, want ERROR", res.Status)
	}
	if client.submitCalls != 2 {
		t.Errorf("submit calls = %d, want 2", client.submitCalls)
	}
}

func TestAssessQuotaMidPollLoopsUntilResolved(t *testing.T) {
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusReady {
		t.Fatalf("status = %q, want READY", res.Status)
	}
	// One poll interval then two escalating backoff waits.
	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
}

func TestAssessPersistentQuotaMidPollHitsCeiling(t *testing.T) {
	// One successful poll, then the quota error on every subsequent call.
	// The session must still terminate at the ceiling with the last
	// in-progress snapshot, not spin in the backoff loop forever.
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	start := clock.Now()
	res := p.Assess(context.Background(), "a.example.com")

	if res.Status != ssllabs.StatusInProgress {
		t.Errorf("status = %q, want last-seen IN_PROGRESS preserved", res.Status)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one timeout warning", res.Warnings)
	}
	// 30s poll interval, then backoff 60/120/240/480/600; the next quota
	// response lands past the 20-minute ceiling and ends the session.
	want := []time.Duration{
		30 * time.Second, 60 * time.Second, 120 * time.Second,
		240 * time.Second, 480 * time.Second, 600 * time.Second,
	}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
	if client.submitCalls != 7 {
		t.Errorf("submit calls = %d, want 7", client.submitCalls)
	}
	if elapsed := clock.Now().Sub(start); elapsed > 30*time.Minute {
		t.Errorf("simulated elapsed time %v, want bounded by ceiling + final backoff", elapsed)
	}
}

func TestAssessBackoffNotResetMidSession(t *testing.T) {
	// Quota hits separated by successful in-progress polls keep escalating;
	// the interval never regresses within one session.
	client := &scriptedClient{
		cache: response{snapshot(""), ssllabs.ClassInProgress},
		script: []response{
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{snapshot(ssllabs.StatusInProgress), ssllabs.ClassInProgress},
			{quotaSnapshot(), ssllabs.ClassQuotaExceeded},
			{snapshot(ssllabs.StatusReady), ssllabs.ClassTerminal},
		},
	}
	clock := newFakeClock()
	p := NewPoller(client, clock, testConfig(), nil)

	p.Assess(context.Background(), "a.example.com")

	// sleeps: 60s (first quota), 30s (poll interval), 120s (second quota).
	want := []time.Duration{60 * time.Second, 30 * time.Second, 120 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
}
