// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/models"
)

// PostgresStore implements ApplicationStore, TransactionLedger and AuditLogStore on gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.Application) error {
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

func (s *PostgresStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Application{})

	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	var apps []models.Application
	if err := paginate(query.Order("application_date DESC"), filter.Offset, filter.Limit).Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch applications: %w", err)
	}

	return apps, total, nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus, review models.Review) error {
	result := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"reviewed_by": review.By,
			"reviewed_at": review.At,
			"review_note": review.Note,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update application status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND paid_at IS NULL", id).
		Update("paid_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark application paid: %w", result.Error)
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var rows []models.StatusCount
	err := s.db.WithContext(ctx).Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count applications by status: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByIntentID(ctx context.Context, intentID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where("processor_intent_id = ?", intentID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.PayerEmail != "" {
		query = query.Where("payer_email = ?", filter.PayerEmail)
	}
	if filter.ApplicationID != nil {
		query = query.Where("application_id = ?", *filter.ApplicationID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	order := "created_at DESC"
	if filter.OldestFirst {
		order = "created_at ASC, id ASC"
	}

	var txs []models.Transaction
	if err := paginate(query.Order(order), filter.Offset, filter.Limit).Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return txs, total, nil
}

func (s *PostgresStore) Finalize(ctx context.Context, intentID string, status models.TransactionStatus, reason string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("processor_intent_id = ? AND status = ?", intentID, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": reason,
			"processed_at":   at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize transaction: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) RevenueByCurrency(ctx context.Context, from, to time.Time) ([]models.RevenueRow, error) {
	var rows []models.RevenueRow
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("status = ? AND processed_at >= ? AND processed_at < ?", models.TransactionStatusSuccess, from, to).
		Group("currency").
		Order("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func paginate(query *gorm.DB, offset, limit int) *gorm.DB {
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}
