package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"cantiere/pkg/circuitbreaker"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	{
		var v any
		syntaxErr = json.Unmarshal([]byte("{"), &v)
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"breaker open", fmt.Errorf("save: %w", circuitbreaker.ErrOpen), true, "circuit_open"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"pg connection", &pgconn.PgError{Code: "08006"}, true, "db_connection_error"},
		{"pg constraint", &pgconn.PgError{Code: "23505"}, false, "db_error"},
		{"permission", fmt.Errorf("write slot: %w", fs.ErrPermission), false, "storage_permission"},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true, "db_busy"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}

func TestMemoryRetryCounter(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRetryCounter(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := FormatRetryKey("project_deleted", "p1")
	assert.Equal(t, "retry:project_deleted:p1", key)

	for want := int64(1); want <= 3; want++ {
		n, err := c.IncrementAndGet(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	now = now.Add(2 * time.Minute)
	n, err := c.IncrementAndGet(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired entries start over")

	require.NoError(t, c.Reset(ctx, key))
	n, _ = c.IncrementAndGet(ctx, key)
	assert.Equal(t, int64(1), n)
}
