package service

import (
	"context"
	"sync"
	"testing"

	"cantiere/internal/gantt"
	"cantiere/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBackend struct {
	*repository.MemorySlotRepository
	mu    sync.Mutex
	loads int
}

func (b *countingBackend) Load(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	return b.MemorySlotRepository.Load(ctx, key)
}

func newDraft(name string) gantt.Draft {
	return gantt.Draft{
		Name:      name,
		StartDate: gantt.NewDate(2024, 3, 1),
		EndDate:   gantt.NewDate(2024, 3, 10),
	}
}

func TestScheduleService_OpensEachProjectOnce(t *testing.T) {
	backend := &countingBackend{MemorySlotRepository: repository.NewMemorySlotRepository()}
	svc := NewScheduleService(backend, ScheduleOptions{}, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Project(ctx, "cantiere-42")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := svc.Project(ctx, "cantiere-42")
	require.NoError(t, err)
	b, err := svc.Project(ctx, "cantiere-42")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, backend.loads)
	assert.Equal(t, 1, svc.OpenProjects())
}

func TestScheduleService_ProjectsAreIsolated(t *testing.T) {
	svc := NewScheduleService(repository.NewMemorySlotRepository(), ScheduleOptions{}, zap.NewNop())
	ctx := context.Background()

	p1, err := svc.Project(ctx, "p1")
	require.NoError(t, err)
	p2, err := svc.Project(ctx, "p2")
	require.NoError(t, err)

	_, err = p1.Create(ctx, newDraft("Scavo fondazioni"))
	require.NoError(t, err)

	assert.Len(t, p1.List(), 1)
	assert.Empty(t, p2.List())
}

func TestScheduleService_PurgeDropsSlot(t *testing.T) {
	backend := repository.NewMemorySlotRepository()
	svc := NewScheduleService(backend, ScheduleOptions{KeyPrefix: "sched_"}, zap.NewNop())
	ctx := context.Background()

	p, err := svc.Project(ctx, "p1")
	require.NoError(t, err)
	_, err = p.Create(ctx, newDraft("Getto solaio"))
	require.NoError(t, err)

	raw, err := backend.Load(ctx, "sched_p1")
	require.NoError(t, err)
	require.NotNil(t, raw)

	require.NoError(t, svc.Purge(ctx, "p1"))
	assert.Equal(t, 0, svc.OpenProjects())

	raw, err = backend.Load(ctx, "sched_p1")
	require.NoError(t, err)
	assert.Nil(t, raw)

	reopened, err := svc.Project(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, reopened.List())
}

func TestScheduleService_PurgedControllerCannotWriteBack(t *testing.T) {
	backend := repository.NewMemorySlotRepository()
	svc := NewScheduleService(backend, ScheduleOptions{}, zap.NewNop())
	ctx := context.Background()

	stale, err := svc.Project(ctx, "p")
	require.NoError(t, err)
	_, err = stale.Create(ctx, newDraft("Demolizioni"))
	require.NoError(t, err)

	require.NoError(t, svc.Purge(ctx, "p"))

	_, err = stale.Create(ctx, newDraft("Ponteggi"))
	assert.ErrorIs(t, err, gantt.ErrProjectPurged)

	raw, err := backend.Load(ctx, gantt.SlotKey("", "p"))
	require.NoError(t, err)
	assert.Nil(t, raw)

	reopened, err := svc.Project(ctx, "p")
	require.NoError(t, err)
	assert.NotSame(t, stale, reopened)
	assert.Empty(t, reopened.List())
}

func TestScheduleService_RequiresProjectID(t *testing.T) {
	svc := NewScheduleService(repository.NewMemorySlotRepository(), ScheduleOptions{}, zap.NewNop())
	_, err := svc.Project(context.Background(), "  ")
	assert.ErrorIs(t, err, gantt.ErrValidation)
}

func TestScheduleService_StrictNotFound(t *testing.T) {
	svc := NewScheduleService(repository.NewMemorySlotRepository(), ScheduleOptions{StrictNotFound: true}, zap.NewNop())
	p, err := svc.Project(context.Background(), "p1")
	require.NoError(t, err)

	assert.ErrorIs(t, p.Delete(context.Background(), "nope"), gantt.ErrTaskNotFound)
}
