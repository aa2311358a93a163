// internal/store/views.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/insurance-backend/internal/models"
)

// RedisViewCounterStore keeps one integer key per resource and relies on INCR for atomicity.
type RedisViewCounterStore struct {
	client *redis.Client
	prefix string
}

func NewRedisViewCounterStore(client *redis.Client, prefix string) *RedisViewCounterStore {
	return &RedisViewCounterStore{client: client, prefix: prefix}
}

func (s *RedisViewCounterStore) key(resourceID string) string {
	return s.prefix + resourceID
}

func (s *RedisViewCounterStore) Increment(ctx context.Context, resourceID string) (int64, error) {
	count, err := s.client.Incr(ctx, s.key(resourceID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment view counter: %w", err)
	}
	return count, nil
}

func (s *RedisViewCounterStore) Get(ctx context.Context, resourceID string) (int64, error) {
	count, err := s.client.Get(ctx, s.key(resourceID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read view counter: %w", err)
	}
	return count, nil
}

// PostgresViewCounterStore increments with a single upsert so the database does the add.
type PostgresViewCounterStore struct {
	db *gorm.DB
}

func NewPostgresViewCounterStore(db *gorm.DB) *PostgresViewCounterStore {
	return &PostgresViewCounterStore{db: db}
}

func (s *PostgresViewCounterStore) Increment(ctx context.Context, resourceID string) (int64, error) {
	counter := models.ViewCounter{ResourceID: resourceID, Count: 1, UpdatedAt: time.Now()}

	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "resource_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("view_counters.count + 1"),
				"updated_at": counter.UpdatedAt,
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "count"}}},
	).Create(&counter).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increment view counter: %w", err)
	}

	return counter.Count, nil
}

func (s *PostgresViewCounterStore) Get(ctx context.Context, resourceID string) (int64, error) {
	var counter models.ViewCounter
	err := s.db.WithContext(ctx).Where("resource_id = ?", resourceID).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read view counter: %w", err)
	}
	return counter.Count, nil
}

// MemoryViewCounterStore is the in-process counterpart; each counter is an atomic int64.
type MemoryViewCounterStore struct {
	counters sync.Map // resource id -> *atomic.Int64
}

func NewMemoryViewCounterStore() *MemoryViewCounterStore {
	return &MemoryViewCounterStore{}
}

func (s *MemoryViewCounterStore) Increment(ctx context.Context, resourceID string) (int64, error) {
	v, _ := s.counters.LoadOrStore(resourceID, new(atomic.Int64))
	return v.(*atomic.Int64).Add(1), nil
}

func (s *MemoryViewCounterStore) Get(ctx context.Context, resourceID string) (int64, error) {
	v, ok := s.counters.Load(resourceID)
	if !ok {
		return 0, nil
	}
	return v.(*atomic.Int64).Load(), nil
}
