package store

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func incrementConcurrently(t *testing.T, s ViewCounterStore, resourceID string, workers, perWorker int) {
	t.Helper()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.Increment(context.Background(), resourceID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestRedisViewCounterStore(t *testing.T) {
	client, mr := setupRedis(t)
	s := NewRedisViewCounterStore(client, "views:")
	ctx := context.Background()

	t.Run("missing resource reads zero", func(t *testing.T) {
		count, err := s.Get(ctx, "never-seen")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		incrementConcurrently(t, s, "visitor-42", 10, 10)

		count, err := s.Get(ctx, "visitor-42")
		require.NoError(t, err)
		assert.Equal(t, int64(100), count)

		stored, err := mr.Get("views:visitor-42")
		require.NoError(t, err)
		assert.Equal(t, "100", stored)
	})

	t.Run("increment returns new value", func(t *testing.T) {
		count, err := s.Increment(ctx, "article-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		_, err := s.Get(ctx, "visitor-42")
		assert.Error(t, err)
	})
}

func TestMemoryViewCounterStore(t *testing.T) {
	s := NewMemoryViewCounterStore()
	incrementConcurrently(t, s, "visitor-42", 10, 10)

	count, err := s.Get(context.Background(), "visitor-42")
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestPostgresViewCounterStore(t *testing.T) {
	upsert := regexp.QuoteMeta(`INSERT INTO "view_counters" ("resource_id","count","updated_at") VALUES ($1,$2,$3)`) + `\s+` +
		regexp.QuoteMeta(`ON CONFLICT ("resource_id") DO UPDATE SET "count"=view_counters.count + 1,"updated_at"=$4 RETURNING "count"`)

	t.Run("increment upserts and returns the stored count", func(t *testing.T) {
		db, mock := newMockedDB(t)
		s := NewPostgresViewCounterStore(db)

		mock.ExpectQuery(upsert).
			WithArgs("visitor-42", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))

		count, err := s.Increment(context.Background(), "visitor-42")
		require.NoError(t, err)
		assert.Equal(t, int64(8), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increment failure surfaces", func(t *testing.T) {
		db, mock := newMockedDB(t)
		s := NewPostgresViewCounterStore(db)

		mock.ExpectQuery(upsert).WillReturnError(errors.New("connection reset by peer"))

		_, err := s.Increment(context.Background(), "visitor-42")
		assert.ErrorContains(t, err, "failed to increment view counter")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing resource reads zero", func(t *testing.T) {
		db, mock := newMockedDB(t)
		s := NewPostgresViewCounterStore(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "view_counters" WHERE resource_id = $1`)).
			WithArgs("never-seen", 1).
			WillReturnRows(sqlmock.NewRows([]string{"resource_id", "count"}))

		count, err := s.Get(context.Background(), "never-seen")
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
