// Package sqlite reads upstream accounts from a SQLite database and records
// per-account call statistics back into it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          VARCHAR(100) NOT NULL UNIQUE,
	display_name  VARCHAR(100),
	account_type  VARCHAR(50) DEFAULT 'puter',
	status        VARCHAR(20) DEFAULT 'active',
	is_active     BOOLEAN DEFAULT 1,
	auth_token    TEXT,
	total_calls   INTEGER DEFAULT 0,
	success_calls INTEGER DEFAULT 0,
	failed_calls  INTEGER DEFAULT 0,
	last_success  DATETIME,
	last_failure  DATETIME,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Source is an accounts.Source backed by the accounts table.
type Source struct {
	db *sql.DB
}

var (
	_ accounts.Source   = (*Source)(nil)
	_ accounts.Recorder = (*Source)(nil)
)

// NewSource opens the database at path, creating the accounts table if it
// does not exist. Use ":memory:" for an ephemeral database.
func NewSource(ctx context.Context, path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes stat updates.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating accounts schema: %w", err)
	}

	return &Source{db: db}, nil
}

// Accounts returns all rows. An account is active when its status is
// "active" and its is_active flag is set.
func (s *Source) Accounts(ctx context.Context) ([]accounts.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(status, ''), COALESCE(is_active, 0), COALESCE(auth_token, '')
		FROM accounts
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		var (
			id       int64
			name     string
			status   string
			isActive bool
			token    string
		)
		if err := rows.Scan(&id, &name, &status, &isActive, &token); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		out = append(out, accounts.Account{
			ID:     strconv.FormatInt(id, 10),
			Name:   name,
			Active: status == "active" && isActive,
			Token:  token,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return out, nil
}

// RecordCall increments the call counters for the account.
func (s *Source) RecordCall(ctx context.Context, id string, success bool, at time.Time) error {
	var query string
	if success {
		query = `UPDATE accounts
			SET total_calls = COALESCE(total_calls, 0) + 1,
			    success_calls = COALESCE(success_calls, 0) + 1,
			    last_success = ?,
			    updated_at = ?
			WHERE id = ?`
	} else {
		query = `UPDATE accounts
			SET total_calls = COALESCE(total_calls, 0) + 1,
			    failed_calls = COALESCE(failed_calls, 0) + 1,
			    last_failure = ?,
			    updated_at = ?
			WHERE id = ?`
	}

	res, err := s.db.ExecContext(ctx, query, at.UTC(), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("recording call for account %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording call for account %s: %w", id, err)
	}
	if n == 0 {
		return accounts.ErrNotFound{ID: id}
	}

	return nil
}

// Stats returns the call counters for the account.
func (s *Source) Stats(ctx context.Context, id string) (accounts.Stats, error) {
	var (
		stats       accounts.Stats
		lastSuccess sql.NullTime
		lastFailure sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(total_calls, 0), COALESCE(success_calls, 0), COALESCE(failed_calls, 0),
		       last_success, last_failure
		FROM accounts WHERE id = ?`, id,
	).Scan(&stats.TotalCalls, &stats.SuccessCalls, &stats.FailedCalls, &lastSuccess, &lastFailure)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Stats{}, accounts.ErrNotFound{ID: id}
	}
	if err != nil {
		return accounts.Stats{}, fmt.Errorf("reading stats for account %s: %w", id, err)
	}

	if lastSuccess.Valid {
		stats.LastSuccess = &lastSuccess.Time
	}
	if lastFailure.Valid {
		stats.LastFailure = &lastFailure.Time
	}

	return stats, nil
}

// Close closes the underlying database.
func (s *Source) Close() error {
	return s.db.Close()
}
