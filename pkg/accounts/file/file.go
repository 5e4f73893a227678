// Package file reads upstream accounts from an accounts.toml file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

const currentVersion = 0

// Document is the on-disk layout of accounts.toml.
type Document struct {
	Version  int            `toml:"version"`
	Accounts []AccountEntry `toml:"accounts"`
}

// AccountEntry is one [[accounts]] table.
type AccountEntry struct {
	ID     string `toml:"id"`
	Name   string `toml:"name,omitempty"`
	Active *bool  `toml:"active,omitempty"`
	Token  string `toml:"token"`
}

// Source re-reads the file on every call so edits are picked up without a
// restart. Callers that need fewer reads put a cache in front.
type Source struct {
	path string
}

var _ accounts.Source = (*Source)(nil)

// NewSource returns a Source for the file at path. The file does not need
// to exist yet: a missing file yields no accounts.
func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Accounts(_ context.Context) ([]accounts.Account, error) {
	doc, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	out := make([]accounts.Account, 0, len(doc.Accounts))
	for i, e := range doc.Accounts {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("account-%d", i+1)
		}
		name := e.Name
		if name == "" {
			name = id
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}

		out = append(out, accounts.Account{ID: id, Name: name, Active: active, Token: e.Token})
	}

	return out, nil
}

func (s *Source) Close() error {
	return nil
}

// Load parses the accounts file. A missing file returns an empty Document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Document{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}

	doc := &Document{}
	if err := toml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing accounts file: %w", err)
	}

	if doc.Version != currentVersion {
		return nil, fmt.Errorf("unsupported accounts file version %d", doc.Version)
	}

	return doc, nil
}
