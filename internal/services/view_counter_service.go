// internal/services/view_counter_service.go
package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// ViewReader is the read side consumed by pollers.
type ViewReader interface {
	Read(ctx context.Context, resourceID string) (int64, error)
}

// ViewCounterService increments through the store's atomic add and never reports a
// count lower than one it already returned for the same resource.
type ViewCounterService struct {
	store     store.ViewCounterStore
	highWater sync.Map // resource id -> *atomic.Int64
}

func NewViewCounterService(counters store.ViewCounterStore) *ViewCounterService {
	return &ViewCounterService{store: counters}
}

func (s *ViewCounterService) Increment(ctx context.Context, resourceID string) (int64, error) {
	if err := validateResourceID(resourceID); err != nil {
		return 0, err
	}

	count, err := s.store.Increment(ctx, resourceID)
	if err != nil {
		return 0, NewUpstreamError("failed to increment view counter", err)
	}

	metrics.ViewIncrements.Inc()
	return s.observe(resourceID, count), nil
}

// Read degrades to the last known count when the store is unavailable.
func (s *ViewCounterService) Read(ctx context.Context, resourceID string) (int64, error) {
	if err := validateResourceID(resourceID); err != nil {
		return 0, err
	}

	count, err := s.store.Get(ctx, resourceID)
	if err != nil {
		metrics.ViewReadFallbacks.Inc()
		logrus.WithError(err).WithField("resource_id", resourceID).Warn("View counter read failed, serving last known count")
		return s.lastKnown(resourceID), nil
	}

	return s.observe(resourceID, count), nil
}

// observe raises the high-water mark to count and returns the mark.
func (s *ViewCounterService) observe(resourceID string, count int64) int64 {
	v, _ := s.highWater.LoadOrStore(resourceID, new(atomic.Int64))
	mark := v.(*atomic.Int64)
	for {
		current := mark.Load()
		if count <= current {
			return current
		}
		if mark.CompareAndSwap(current, count) {
			return count
		}
	}
}

func (s *ViewCounterService) lastKnown(resourceID string) int64 {
	v, ok := s.highWater.Load(resourceID)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

func validateResourceID(resourceID string) error {
	if err := utils.ValidateVar(resourceID, "required,resource_id"); err != nil {
		return NewValidationError("invalid resource id", []utils.ValidationError{
			{Field: "resource_id", Tag: "resource_id", Message: "Resource id must be 1-128 letters, digits, underscores or hyphens"},
		})
	}
	return nil
}
