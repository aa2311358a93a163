// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/insurance-backend/internal/models"
)

// MemoryStore is an in-process ApplicationStore, TransactionLedger and AuditLogStore.
// It backs local development (STORE_DRIVER=memory) and the service tests, and keeps the
// same conditional-write semantics as the Postgres store.
type MemoryStore struct {
	mu           sync.RWMutex
	applications map[uuid.UUID]*models.Application
	transactions map[string]*models.Transaction // keyed by processor intent id
	auditLogs    []models.AuditLog
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applications: make(map[uuid.UUID]*models.Application),
		transactions: make(map[string]*models.Transaction),
		now:          time.Now,
	}
}

func (s *MemoryStore) CreateApplication(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if _, exists := s.applications[app.ID]; exists {
		return ErrDuplicate
	}

	now := s.now()
	app.CreatedAt, app.UpdatedAt = now, now
	s.applications[app.ID] = app.Clone()
	return nil
}

func (s *MemoryStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return app.Clone(), nil
}

func (s *MemoryStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	s.mu.RLock()
	var matched []models.Application
	for _, app := range s.applications {
		if filter.Email != "" && app.Email != filter.Email {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		matched = append(matched, *app.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ApplicationDate.After(matched[j].ApplicationDate)
	})

	total := int64(len(matched))
	return window(matched, filter.Offset, filter.Limit), total, nil
}

func (s *MemoryStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus, review models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok || app.Status != from {
		return ErrConflict
	}

	at := review.At
	app.Status = to
	app.ReviewedBy = review.By
	app.ReviewedAt = &at
	app.ReviewNote = review.Note
	app.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app, ok := s.applications[id]; ok && app.PaidAt == nil {
		app.PaidAt = &at
		app.UpdatedAt = s.now()
	}
	return nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	s.mu.RLock()
	counts := make(map[models.ApplicationStatus]int64)
	for _, app := range s.applications {
		counts[app.Status]++
	}
	s.mu.RUnlock()

	rows := make([]models.StatusCount, 0, len(counts))
	for status, count := range counts {
		rows = append(rows, models.StatusCount{Status: status, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return rows, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ProcessorIntentID]; exists {
		return ErrDuplicate
	}
	// Mirrors idx_transactions_one_pending_per_application
	if tx.Status == models.TransactionStatusPending {
		for _, other := range s.transactions {
			if other.ApplicationID == tx.ApplicationID && other.Status == models.TransactionStatusPending {
				return ErrDuplicate
			}
		}
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	s.transactions[tx.ProcessorIntentID] = tx.Clone()
	return nil
}

func (s *MemoryStore) GetByIntentID(ctx context.Context, intentID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[intentID]
	if !ok {
		return nil, ErrNotFound
	}
	return tx.Clone(), nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	s.mu.RLock()
	var matched []models.Transaction
	for _, tx := range s.transactions {
		if filter.PayerEmail != "" && tx.PayerEmail != filter.PayerEmail {
			continue
		}
		if filter.ApplicationID != nil && tx.ApplicationID != *filter.ApplicationID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.CreatedBefore != nil && !tx.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		matched = append(matched, *tx.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if filter.OldestFirst {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return window(matched, filter.Offset, filter.Limit), total, nil
}

func (s *MemoryStore) Finalize(ctx context.Context, intentID string, status models.TransactionStatus, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[intentID]
	if !ok || tx.Status != models.TransactionStatusPending {
		return ErrConflict
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.ProcessedAt = &at
	tx.UpdatedAt = at
	return nil
}

func (s *MemoryStore) RevenueByCurrency(ctx context.Context, from, to time.Time) ([]models.RevenueRow, error) {
	s.mu.RLock()
	totals := make(map[string]*models.RevenueRow)
	for _, tx := range s.transactions {
		if tx.Status != models.TransactionStatusSuccess || tx.ProcessedAt == nil {
			continue
		}
		if tx.ProcessedAt.Before(from) || !tx.ProcessedAt.Before(to) {
			continue
		}
		row, ok := totals[tx.Currency]
		if !ok {
			row = &models.RevenueRow{Currency: tx.Currency}
			totals[tx.Currency] = row
		}
		row.Total += tx.Amount
		row.Count++
	}
	s.mu.RUnlock()

	rows := make([]models.RevenueRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Currency < rows[j].Currency })
	return rows, nil
}

func (s *MemoryStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.now()
	s.auditLogs = append(s.auditLogs, *entry)
	return nil
}

// AuditLogs returns a snapshot of recorded audit entries.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.auditLogs...)
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
