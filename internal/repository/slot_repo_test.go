package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cantiere/pkg/circuitbreaker"
	"cantiere/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// exerciseBackend checks the contract every slot backend must honor.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	value, err := b.Load(ctx, "gantt_tasks_missing")
	require.NoError(t, err)
	assert.Nil(t, value, "absent key loads as nil")

	require.NoError(t, b.Save(ctx, "gantt_tasks_p1", []byte(`[{"id":"a"}]`)))
	value, err = b.Load(ctx, "gantt_tasks_p1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(value))

	require.NoError(t, b.Save(ctx, "gantt_tasks_p1", []byte(`[]`)))
	value, err = b.Load(ctx, "gantt_tasks_p1")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(value), "save overwrites the whole snapshot")

	require.NoError(t, b.Delete(ctx, "gantt_tasks_p1"))
	value, err = b.Load(ctx, "gantt_tasks_p1")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, b.Delete(ctx, "gantt_tasks_p1"), "deleting an absent key is not an error")
	require.NoError(t, b.Ping(ctx))
}

func TestMemorySlotRepository(t *testing.T) {
	exerciseBackend(t, NewMemorySlotRepository())
}

func TestMemorySlotRepository_CopiesValues(t *testing.T) {
	r := NewMemorySlotRepository()
	ctx := context.Background()

	buf := []byte(`[]`)
	require.NoError(t, r.Save(ctx, "k", buf))
	buf[0] = 'x'

	value, err := r.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))
}

func TestFileSlotRepository(t *testing.T) {
	r, err := NewFileSlotRepository(t.TempDir())
	require.NoError(t, err)
	exerciseBackend(t, r)
}

func TestFileSlotRepository_EscapesKeys(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFileSlotRepository(dir)
	require.NoError(t, err)

	require.NoError(t, r.Save(context.Background(), "gantt_tasks_../../etc", []byte(`[]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dir, filepath.Dir(r.path("gantt_tasks_../../etc")))
}

func TestFileSlotRepository_RequiresDir(t *testing.T) {
	_, err := NewFileSlotRepository("")
	assert.Error(t, err)
}

func TestSQLiteSlotRepository(t *testing.T) {
	r, err := NewSQLiteSlotRepository(context.Background(), filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	exerciseBackend(t, r)
}

type failingBackend struct {
	*MemorySlotRepository
	calls int
}

func (f *failingBackend) Load(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestGuardedBackend_OpensAfterFailures(t *testing.T) {
	inner := &failingBackend{MemorySlotRepository: NewMemorySlotRepository()}
	g := NewGuardedBackend(inner, circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Load(ctx, "k")
		assert.Error(t, err)
	}
	_, err := g.Load(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, circuitbreaker.StateOpen, g.BreakerState())

	// Save goes through the same breaker.
	assert.ErrorIs(t, g.Save(ctx, "k", []byte(`[]`)), circuitbreaker.ErrOpen)
}

func TestObserve_PassesThrough(t *testing.T) {
	b := Observe(NewMemorySlotRepository(), zap.NewNop())
	assert.Equal(t, DriverMemory, b.Driver())
	exerciseBackend(t, b)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.Dir = filepath.Join(dir, "files")
	cfg.Storage.SQLitePath = filepath.Join(dir, "db", "slots.db")

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg.Storage.Driver = driver
			b, err := Open(ctx, &cfg, zap.NewNop())
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, driver, b.Driver())
		})
	}

	cfg.Storage.Driver = "cassandra"
	_, err := Open(ctx, &cfg, zap.NewNop())
	assert.Error(t, err)
}
