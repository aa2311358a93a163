package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/models"
)

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "50.00", formatMinorUnits(5000))
	assert.Equal(t, "0.05", formatMinorUnits(5))
	assert.Equal(t, "-12.34", formatMinorUnits(-1234))
}

func TestNotificationsWithoutSMTPAreSkipped(t *testing.T) {
	notifier := NewNotificationService(config.EmailConfig{})
	now := time.Now()

	app := &models.Application{
		FullName:       "Ada Lovelace",
		Email:          "a@x.com",
		InsuranceType:  models.InsuranceTypeLife,
		CoverageAmount: 50000,
		Status:         models.ApplicationStatusApproved,
		ReviewedAt:     &now,
	}
	app.ID = uuid.New()

	tx := &models.Transaction{
		ProcessorIntentID: "pi_1",
		ApplicationID:     app.ID,
		PayerEmail:        app.Email,
		Amount:            5000,
		Currency:          "usd",
		Status:            models.TransactionStatusSuccess,
	}

	assert.NoError(t, notifier.ApplicationReceived(app))
	assert.NoError(t, notifier.ApplicationReviewed(app))
	assert.NoError(t, notifier.PaymentReceived(app, tx))
}
