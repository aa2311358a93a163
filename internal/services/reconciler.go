// internal/services/reconciler.go
package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
)

type PendingResolver interface {
	ResolvePending(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
}

// Reconciler resolves transactions stuck in pending, typically after a confirmation
// timed out and the processor's callback never arrived.
type Reconciler struct {
	ledger   store.TransactionLedger
	resolver PendingResolver
	config   config.ReconcilerConfig
	now      func() time.Time
}

func NewReconciler(ledger store.TransactionLedger, resolver PendingResolver, cfg config.ReconcilerConfig) *Reconciler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Reconciler{
		ledger:   ledger,
		resolver: resolver,
		config:   cfg,
		now:      time.Now,
	}
}

// Run sweeps on every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"interval":    r.config.Interval,
		"stale_after": r.config.StaleAfter,
	}).Info("Payment reconciler started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Payment reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Payment reconciliation sweep failed")
			}
		}
	}
}

// RunOnce pages through every stale pending transaction, oldest first, and returns how
// many reached a final status. Rows that stay pending keep their place, so the offset
// only advances past them.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.config.StaleAfter)

	var seen, resolved int
	offset := 0
	for ctx.Err() == nil {
		page, _, err := r.ledger.ListTransactions(ctx, store.TransactionFilter{
			Status:        models.TransactionStatusPending,
			CreatedBefore: &cutoff,
			OldestFirst:   true,
			Offset:        offset,
			Limit:         r.config.BatchSize,
		})
		if err != nil {
			metrics.ReconcilerRuns.WithLabelValues("error").Inc()
			return resolved, err
		}

		done := r.resolveBatch(ctx, page)
		seen += len(page)
		resolved += done
		offset += len(page) - done

		if r.config.BatchSize <= 0 || len(page) < r.config.BatchSize {
			break
		}
	}

	metrics.ReconcilerRuns.WithLabelValues("ok").Inc()
	if seen > 0 {
		logrus.WithFields(logrus.Fields{
			"stale":    seen,
			"resolved": resolved,
		}).Info("Payment reconciliation sweep finished")
	}

	return resolved, nil
}

func (r *Reconciler) resolveBatch(ctx context.Context, batch []models.Transaction) int {
	var resolved atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)

	for i := range batch {
		tx := batch[i]
		g.Go(func() error {
			result, err := r.resolver.ResolvePending(ctx, &tx)
			if err != nil {
				// One unreachable intent must not hold up the rest of the batch
				logrus.WithError(err).WithField("intent_id", tx.ProcessorIntentID).Warn("Failed to reconcile pending transaction")
				return nil
			}
			if result.Status.IsFinal() {
				resolved.Add(1)
				metrics.PendingTransactionsResolved.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(resolved.Load())
}
