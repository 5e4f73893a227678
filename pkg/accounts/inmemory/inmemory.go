// Package inmemory provides a static, in-memory account source.
package inmemory

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

// Source serves a fixed list of accounts and keeps call statistics in memory.
type Source struct {
	mu       sync.RWMutex
	accounts []accounts.Account
	stats    map[string]accounts.Stats
}

var (
	_ accounts.Source   = (*Source)(nil)
	_ accounts.Recorder = (*Source)(nil)
)

// NewSource returns a Source serving the given accounts.
func NewSource(accts ...accounts.Account) *Source {
	return &Source{
		accounts: slices.Clone(accts),
		stats:    make(map[string]accounts.Stats, len(accts)),
	}
}

// FromTokens builds active accounts from raw tokens, numbering them from 1.
// Blank tokens are kept and later filtered out as ineligible.
func FromTokens(tokens ...string) *Source {
	accts := make([]accounts.Account, 0, len(tokens))
	for i, t := range tokens {
		id := "static-" + strconv.Itoa(i+1)
		accts = append(accts, accounts.Account{ID: id, Name: id, Active: true, Token: t})
	}
	return NewSource(accts...)
}

func (s *Source) Accounts(_ context.Context) ([]accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts), nil
}

func (s *Source) RecordCall(_ context.Context, id string, success bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.has(id) {
		return accounts.ErrNotFound{ID: id}
	}
	s.stats[id] = s.stats[id].Apply(success, at)
	return nil
}

func (s *Source) Stats(_ context.Context, id string) (accounts.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.has(id) {
		return accounts.Stats{}, accounts.ErrNotFound{ID: id}
	}
	return s.stats[id], nil
}

func (s *Source) Close() error {
	return nil
}

func (s *Source) has(id string) bool {
	return slices.ContainsFunc(s.accounts, func(a accounts.Account) bool { return a.ID == id })
}
