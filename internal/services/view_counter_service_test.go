package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/insurance-backend/internal/store"
)

// scriptedCounterStore replays a fixed sequence of read results.
type scriptedCounterStore struct {
	mu    sync.Mutex
	reads []scriptedRead
}

type scriptedRead struct {
	count int64
	err   error
}

func (s *scriptedCounterStore) Increment(ctx context.Context, resourceID string) (int64, error) {
	return 0, errors.New("redis: connection pool timeout")
}

func (s *scriptedCounterStore) Get(ctx context.Context, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.reads[0]
	if len(s.reads) > 1 {
		s.reads = s.reads[1:]
	}
	return next.count, next.err
}

func incrementFromGoroutines(t *testing.T, svc *ViewCounterService, resourceID string, goroutines, each int) {
	t.Helper()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				_, err := svc.Increment(context.Background(), resourceID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestViewCounterConcurrentIncrements(t *testing.T) {
	svc := NewViewCounterService(store.NewMemoryViewCounterStore())

	incrementFromGoroutines(t, svc, "visitor-42", 10, 10)

	count, err := svc.Read(context.Background(), "visitor-42")
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestViewCounterConcurrentIncrementsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewViewCounterService(store.NewRedisViewCounterStore(client, "views:"))

	incrementFromGoroutines(t, svc, "visitor-42", 10, 10)

	count, err := svc.Read(context.Background(), "visitor-42")
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestViewCounterUnknownResourceReadsZero(t *testing.T) {
	svc := NewViewCounterService(store.NewMemoryViewCounterStore())

	count, err := svc.Read(context.Background(), "never-viewed")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestViewCounterReadsNeverDecrease(t *testing.T) {
	counters := &scriptedCounterStore{reads: []scriptedRead{
		{count: 5},
		{count: 3},
		{err: errors.New("redis: connection refused")},
		{count: 7},
	}}
	svc := NewViewCounterService(counters)
	ctx := context.Background()

	var got []int64
	for i := 0; i < 4; i++ {
		count, err := svc.Read(ctx, "visitor-42")
		require.NoError(t, err)
		got = append(got, count)
	}

	assert.Equal(t, []int64{5, 5, 5, 7}, got)
}

func TestViewCounterReadFailureBeforeAnyValue(t *testing.T) {
	counters := &scriptedCounterStore{reads: []scriptedRead{{err: errors.New("redis: connection refused")}}}
	svc := NewViewCounterService(counters)

	count, err := svc.Read(context.Background(), "visitor-42")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestViewCounterIncrementFailureIsUpstream(t *testing.T) {
	svc := NewViewCounterService(&scriptedCounterStore{reads: []scriptedRead{{}}})

	_, err := svc.Increment(context.Background(), "visitor-42")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestViewCounterRejectsInvalidResourceIDs(t *testing.T) {
	svc := NewViewCounterService(store.NewMemoryViewCounterStore())

	for _, id := range []string{"", "has space", "slash/inside", strings.Repeat("a", 129)} {
		_, err := svc.Increment(context.Background(), id)
		assert.ErrorIs(t, err, ErrValidation, "increment %q", id)

		_, err = svc.Read(context.Background(), id)
		assert.ErrorIs(t, err, ErrValidation, "read %q", id)
	}
}
