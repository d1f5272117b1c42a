package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

func TestMapError(t *testing.T) {
	plain := errors.New("syntax error")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), domain.ErrNotFound},
		{"deadline", context.DeadlineExceeded, domain.ErrStorageUnavailable},
		{"unique violation", &pq.Error{Code: "23505", Message: "duplicate key"}, domain.ErrConstraintViolation},
		{"foreign key violation", &pq.Error{Code: "23503", Message: "fk"}, domain.ErrConstraintViolation},
		{"not null violation", &pq.Error{Code: "23502"}, domain.ErrConstraintViolation},
		{"query canceled", &pq.Error{Code: "57014"}, domain.ErrStorageUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, domain.ErrStorageUnavailable},
		{"connection failure", &pq.Error{Code: "08006"}, domain.ErrStorageUnavailable},
		{"too many connections", &pq.Error{Code: "53300"}, domain.ErrStorageUnavailable},
		{"bad conn", driver.ErrBadConn, domain.ErrStorageUnavailable},
		{"conn done", sql.ErrConnDone, domain.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	// Unclassified errors pass through unchanged
	assert.Same(t, plain, mapError(plain))

	syntax := &pq.Error{Code: "42601"}
	assert.Equal(t, error(syntax), mapError(syntax))
}

func TestHashLockName(t *testing.T) {
	assert.Equal(t, hashLockName("deploy"), hashLockName("deploy"))
	assert.NotEqual(t, hashLockName("deploy"), hashLockName("migrate"))
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"role", `"user"`, "insurance"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestNewDB_DefaultTimeout(t *testing.T) {
	db := NewDB(nil, 0)
	assert.Equal(t, DefaultStorageTimeout, db.Timeout())
	assert.Equal(t, DefaultStorageTimeout, DefaultConfig("postgres://x").StorageTimeout)
}
