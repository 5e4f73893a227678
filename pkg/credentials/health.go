package credentials

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Health decides whether a credential should currently be offered and learns
// from call outcomes. Implementations must be safe for concurrent use.
type Health interface {
	Healthy(id string, now time.Time) bool
	ReportSuccess(id string)
	ReportFailure(id string, now time.Time)
}

// NopHealth treats every credential as healthy, which makes the pool pick
// uniformly at random among eligible accounts.
type NopHealth struct{}

func (NopHealth) Healthy(string, time.Time) bool { return true }

func (NopHealth) ReportSuccess(string) {}

func (NopHealth) ReportFailure(string, time.Time) {}

// BackoffConfig tunes BackoffHealth.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

// BackoffHealth benches a credential after a failure for an exponentially
// growing window. A success clears the bench.
type BackoffHealth struct {
	mu      sync.Mutex
	config  BackoffConfig
	benched map[string]*bench
}

type bench struct {
	b     backoff.BackOff
	until time.Time
}

var _ Health = (*BackoffHealth)(nil)

// NewBackoffHealth returns a BackoffHealth. Zero fields use the
// cenkalti/backoff defaults.
func NewBackoffHealth(c BackoffConfig) *BackoffHealth {
	return &BackoffHealth{
		config:  c,
		benched: make(map[string]*bench),
	}
}

func (h *BackoffHealth) Healthy(id string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.benched[id]
	return !ok || !now.Before(b.until)
}

func (h *BackoffHealth) ReportSuccess(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.benched, id)
}

func (h *BackoffHealth) ReportFailure(id string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.benched[id]
	if !ok {
		b = &bench{b: h.newBackOff()}
		h.benched[id] = b
	}

	wait := b.b.NextBackOff()
	if wait == backoff.Stop {
		wait = h.maxInterval()
	}
	b.until = now.Add(wait)
}

// BenchedUntil reports when the credential becomes healthy again.
func (h *BackoffHealth) BenchedUntil(id string) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.benched[id]
	if !ok {
		return time.Time{}, false
	}
	return b.until, true
}

func (h *BackoffHealth) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if h.config.InitialInterval > 0 {
		eb.InitialInterval = h.config.InitialInterval
	}
	if h.config.MaxInterval > 0 {
		eb.MaxInterval = h.config.MaxInterval
	}
	if h.config.Multiplier > 0 {
		eb.Multiplier = h.config.Multiplier
	}
	eb.RandomizationFactor = h.config.Jitter
	// Never give up: a credential keeps cycling between benched and eligible.
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

func (h *BackoffHealth) maxInterval() time.Duration {
	if h.config.MaxInterval > 0 {
		return h.config.MaxInterval
	}
	return backoff.DefaultMaxInterval
}
