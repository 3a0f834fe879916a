package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPostgresRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped context canceled", fmt.Errorf("ping: %w", context.Canceled), false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"wrapped pg error", fmt.Errorf("query: %w", &pgconn.PgError{Code: "08006"}), true},
		{"disk full", &pgconn.PgError{Code: "53100"}, false},
		{"out of memory", &pgconn.PgError{Code: "53200"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{"uppercase message", errors.New("CONNECTION RESET BY PEER"), true},
		{"timeout", errors.New("operation timeout"), true},
		{"random error", errors.New("something unexpected"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isPostgresRetryable(tc.err))
		})
	}
}

func TestClose_NilPool(t *testing.T) {
	assert.NotPanics(t, func() { Close(nil) })
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var ups, downs int
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs, "every migration needs a down file")
	assert.GreaterOrEqual(t, ups, 2)

	schema, err := fs.ReadFile(migrationsFS, "migrations/000001_create_gift_cards.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(schema), "ledger_id      TEXT PRIMARY KEY")
	assert.Contains(t, string(schema), "CHECK (balance >= 0)")
}

func TestGiftCardMoneyColumnsKeepLedgerScale(t *testing.T) {
	schema, err := fs.ReadFile(migrationsFS, "migrations/000001_create_gift_cards.up.sql")
	require.NoError(t, err)

	// three-decimal currencies must round-trip unchanged
	for _, column := range []string{"initial_value", "balance"} {
		assert.Regexp(t, `(?m)^\s*`+column+`\s+NUMERIC NOT NULL`, string(schema))
	}
	assert.NotRegexp(t, `NUMERIC\s*\(`, string(schema))
}
