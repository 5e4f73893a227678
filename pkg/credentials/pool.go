// Package credentials selects upstream bearer tokens from the configured
// account source.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

const snapshotKey = "eligible"

// Credential is the token of one eligible account.
type Credential struct {
	AccountID string
	Token     string
}

// Config is the configuration options for the Pool.
type Config struct {
	// Source supplies the accounts.
	Source accounts.Source

	// Health filters benched credentials. Defaults to NopHealth.
	Health Health

	// CacheTTL is how long an eligible snapshot is reused before the source
	// is read again. Zero reads the source on every call.
	CacheTTL time.Duration

	// Selector picks among the healthy candidates. Defaults to a
	// UniformSelector on the global source.
	Selector Selector

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool hands out credentials uniformly at random among eligible, healthy
// accounts. It never reorders or retries on its own.
type Pool struct {
	source accounts.Source
	health Health
	ttl    time.Duration
	cache  *ristretto.Cache[string, []Credential]
	picker Selector
	now    func() time.Time
	logger *zap.Logger
}

// NewPool creates a Pool.
func NewPool(c *Config) (*Pool, error) {
	if c.Source == nil {
		return nil, errors.New("credential pool requires an account source")
	}

	p := &Pool{
		source: c.Source,
		health: c.Health,
		ttl:    c.CacheTTL,
		picker: c.Selector,
		now:    c.Now,
		logger: c.Logger,
	}

	if p.health == nil {
		p.health = NopHealth{}
	}
	if p.picker == nil {
		p.picker = &UniformSelector{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	if p.ttl > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []Credential]{
			NumCounters: 100,
			MaxCost:     1 << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("creating credential cache: %w", err)
		}
		p.cache = cache
	}

	return p, nil
}

// Next returns a random eligible credential. ok is false when no account is
// eligible. A non-nil error means the account source could not be read.
func (p *Pool) Next(ctx context.Context) (cred Credential, ok bool, err error) {
	eligible, err := p.Eligible(ctx)
	if err != nil {
		return Credential{}, false, err
	}
	if len(eligible) == 0 {
		return Credential{}, false, nil
	}

	candidates := p.healthy(eligible)
	if len(candidates) == 0 {
		p.logger.Warn("all credentials benched, falling back to full eligible set",
			zap.Int("eligible", len(eligible)),
		)
		candidates = eligible
	}

	return candidates[p.picker.Select(len(candidates))], true, nil
}

// Eligible returns the current eligible credentials, from cache when fresh.
func (p *Pool) Eligible(ctx context.Context) ([]Credential, error) {
	if p.cache != nil {
		if creds, found := p.cache.Get(snapshotKey); found {
			return creds, nil
		}
	}

	all, err := p.source.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}

	eligible := accounts.Eligible(all)
	creds := make([]Credential, 0, len(eligible))
	for _, a := range eligible {
		creds = append(creds, Credential{AccountID: a.ID, Token: a.Token})
	}

	p.logger.Debug("loaded credential snapshot",
		zap.Int("accounts", len(all)),
		zap.Int("eligible", len(creds)),
	)

	if p.cache != nil {
		p.cache.SetWithTTL(snapshotKey, creds, int64(len(creds)+1), p.ttl)
		p.cache.Wait()
	}

	return creds, nil
}

// ReportSuccess feeds a successful upstream call back into health scoring.
func (p *Pool) ReportSuccess(id string) {
	p.health.ReportSuccess(id)
}

// ReportFailure feeds a failed upstream call back into health scoring.
func (p *Pool) ReportFailure(id string) {
	p.health.ReportFailure(id, p.now())
}

// Invalidate drops the cached snapshot.
func (p *Pool) Invalidate() {
	if p.cache != nil {
		p.cache.Del(snapshotKey)
		p.cache.Wait()
	}
}

// Close releases the cache.
func (p *Pool) Close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

func (p *Pool) healthy(creds []Credential) []Credential {
	now := p.now()
	out := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if p.health.Healthy(c.AccountID, now) {
			out = append(out, c)
		}
	}
	return out
}
