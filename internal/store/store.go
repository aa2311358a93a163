// internal/store/store.go

// Package store holds the durable collections behind the application lifecycle:
// applications, the payment ledger, audit logs and view counters. Every status change is
// a conditional write so concurrent callers cannot both win the same transition.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/insurance-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("conditional update did not apply")
	ErrDuplicate = errors.New("duplicate record")
)

type ApplicationFilter struct {
	Email  string
	Status models.ApplicationStatus
	Offset int
	Limit  int
}

type TransactionFilter struct {
	PayerEmail    string
	ApplicationID *uuid.UUID
	Status        models.TransactionStatus
	CreatedBefore *time.Time
	// OldestFirst orders by created_at ascending instead of newest first.
	OldestFirst bool
	Offset      int
	Limit       int
}

type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
	// TransitionStatus sets status to `to` only while it still equals `from`.
	// It returns ErrConflict when the precondition no longer holds.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus, review models.Review) error
	// MarkPaid sets paid_at once; later calls leave the first timestamp in place.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type TransactionLedger interface {
	// CreateTransaction returns ErrDuplicate if the processor intent id is already recorded
	// or if the application already has a pending transaction.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetByIntentID(ctx context.Context, intentID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	// Finalize moves a pending transaction to a terminal status. It returns ErrConflict
	// when the transaction was already finalized by someone else.
	Finalize(ctx context.Context, intentID string, status models.TransactionStatus, reason string, at time.Time) error
	RevenueByCurrency(ctx context.Context, from, to time.Time) ([]models.RevenueRow, error)
}

type AuditLogStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type ViewCounterStore interface {
	// Increment adds exactly one and returns the new count.
	Increment(ctx context.Context, resourceID string) (int64, error)
	// Get returns zero for a resource that was never incremented.
	Get(ctx context.Context, resourceID string) (int64, error)
}
