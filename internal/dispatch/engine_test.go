package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/registry"
	"github.com/cuongbtq/marketops-be/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_StartRejectsZeroConcurrency(t *testing.T) {
	engine := newTestEngine(storage.NewMemStore(), registry.New(), 0)

	err := engine.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestEngine_ProcessesJobsUntilStopped(t *testing.T) {
	store := seedStore(t, "publish_listing")
	reg := registry.New()
	registerAction(reg, "etsy", "publish_listing", func(ctx context.Context, job *domain.Job) domain.Outcome {
		return domain.Success(nil)
	})
	engine := newTestEngine(store, reg, 3)

	batch, jobs := seedBatchOfJobs(t, store, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = engine.Start(ctx) }()
	engine.Nudge()

	require.Eventually(t, func() bool {
		got, err := store.GetBatchByID(ctx, batch.ID)
		return err == nil && got.Status == domain.BatchStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	engine.Stop()

	for _, job := range jobs {
		got, err := store.GetJobByID(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
	}

	got, err := store.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.CompletedCount)
	assert.Equal(t, 0, got.PendingCount())
}

func TestEngine_DispatchOrderFollowsPriorityThenFIFO(t *testing.T) {
	store := seedStore(t, "publish_listing")

	var mu sync.Mutex
	var executed []string

	reg := registry.New()
	registerAction(reg, "etsy", "publish_listing", func(ctx context.Context, job *domain.Job) domain.Outcome {
		mu.Lock()
		executed = append(executed, job.ID)
		mu.Unlock()
		return domain.Success(nil)
	})

	// Single worker makes execution order observable.
	engine := newTestEngine(store, reg, 1)

	base := time.Now()
	low := seedJob(t, store, "", 4, base)
	firstHigh := seedJob(t, store, "", 1, base.Add(time.Second))
	mid := seedJob(t, store, "", 3, base.Add(2*time.Second))
	secondHigh := seedJob(t, store, "", 1, base.Add(3*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = engine.Start(ctx) }()
	engine.Nudge()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(executed) == 4
	}, 5*time.Second, 10*time.Millisecond)

	engine.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{firstHigh.ID, secondHigh.ID, mid.ID, low.ID}, executed)
}

func TestEngine_NudgeNeverBlocks(t *testing.T) {
	engine := newTestEngine(storage.NewMemStore(), registry.New(), 1)

	// Many nudges with no selection loop draining them must not deadlock.
	for i := 0; i < 100; i++ {
		engine.Nudge()
	}
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	store := seedStore(t, "publish_listing")
	engine := newTestEngine(store, registry.New(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan error, 1)
	go func() { started <- engine.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)

	engine.Stop()
	engine.Stop()

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}
