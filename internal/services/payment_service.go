// internal/services/payment_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// Outcome sources, used for metrics and logs.
const (
	sourceAPI        = "api"
	sourceClient     = "client"
	sourceWebhook    = "webhook"
	sourceStatus     = "status_check"
	sourceReconciler = "reconciler"
)

// PaymentService couples approved applications to the payment processor and records
// every attempt in the ledger exactly once per processor intent.
type PaymentService struct {
	apps             store.ApplicationStore
	ledger           store.TransactionLedger
	audit            store.AuditLogStore
	gateway          PaymentGateway
	authorizer       Authorizer
	notifier         Notifier
	webhookSecret    string
	ignoreAPIVersion bool
	defaultCurrency  string
	now              func() time.Time
}

type InitiatePaymentRequest struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Amount        int64     `json:"amount" validate:"required,gt=0"`
	Currency      string    `json:"currency,omitempty" validate:"omitempty,currency"`
}

type PaymentIntentResponse struct {
	IntentID     string              `json:"intent_id"`
	ClientSecret string              `json:"client_secret"`
	Transaction  *models.Transaction `json:"transaction"`
}

type ConfirmPaymentRequest struct {
	IntentID string        `json:"intent_id" validate:"required,max=255"`
	Outcome  IntentOutcome `json:"outcome" validate:"required,oneof=succeeded failed"`
	Reason   string        `json:"reason,omitempty" validate:"max=500"`
}

type ConfirmWithTokenRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=255"`
}

type PaymentStatus struct {
	Transaction    *models.Transaction `json:"transaction"`
	RequiresAction bool                `json:"requires_action"`
}

func NewPaymentService(
	apps store.ApplicationStore,
	ledger store.TransactionLedger,
	audit store.AuditLogStore,
	gateway PaymentGateway,
	authorizer Authorizer,
	notifier Notifier,
	cfg config.PaymentConfig,
) *PaymentService {
	currency := strings.ToLower(cfg.DefaultCurrency)
	if currency == "" {
		currency = "usd"
	}

	return &PaymentService{
		apps:             apps,
		ledger:           ledger,
		audit:            audit,
		gateway:          gateway,
		authorizer:       authorizer,
		notifier:         notifier,
		webhookSecret:    cfg.StripeWebhookSecret,
		ignoreAPIVersion: cfg.StripeWebhookIgnoreAPIVersion,
		defaultCurrency:  currency,
		now:              time.Now,
	}
}

func (s *PaymentService) InitiatePayment(ctx context.Context, caller Identity, req *InitiatePaymentRequest) (*PaymentIntentResponse, error) {
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	if err := utils.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid payment request", utils.GetValidationErrors(err))
	}
	if req.ApplicationID == uuid.Nil {
		return nil, NewValidationError("invalid payment request", []utils.ValidationError{
			{Field: "application_id", Tag: "required", Message: "application_id is required"},
		})
	}

	app, err := s.apps.GetApplication(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("application")
		}
		return nil, storageError("get application", err)
	}
	if !s.canSee(caller, app.Email) {
		return nil, NewNotFoundError("application")
	}

	if app.Status != models.ApplicationStatusApproved {
		return nil, NewInvalidTransitionError("application must be approved before payment, it is " + string(app.Status))
	}
	if app.PaidAt != nil {
		return nil, NewInvalidTransitionError("application is already paid")
	}

	// Never open a second charge while an earlier one may still complete
	if err := s.ensureNoPaymentInFlight(ctx, app.ID); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	intent, err := s.gateway.CreateIntent(ctx, req.Amount, currency, map[string]string{
		"application_id": app.ID.String(),
		"payer_email":    app.Email,
	})
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ProcessorIntentID: intent.ID,
		ApplicationID:     app.ID,
		PayerEmail:        app.Email,
		Amount:            req.Amount,
		Currency:          currency,
		Status:            models.TransactionStatusPending,
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent initiation for this application recorded its intent first
			s.releaseIntent(ctx, intent.ID, CancelReasonDuplicate)
			return nil, NewInvalidTransitionError("a payment for this application is already in progress")
		}
		logrus.WithError(err).WithField("intent_id", intent.ID).Error("Failed to record payment intent")
		s.releaseIntent(ctx, intent.ID, CancelReasonAbandoned)
		return nil, storageError("record transaction", err)
	}

	metrics.PaymentIntentsCreated.WithLabelValues(currency).Inc()
	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"intent_id":      intent.ID,
		"amount":         req.Amount,
		"currency":       currency,
	}).Info("Payment intent created")

	return &PaymentIntentResponse{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Transaction:  tx,
	}, nil
}

// ConfirmPayment is the reconciliation entrypoint. Repeated calls for an already
// finalized transaction return it unchanged.
func (s *PaymentService) ConfirmPayment(ctx context.Context, intentID string, outcome IntentOutcome, reason string) (*models.Transaction, error) {
	return s.confirm(ctx, intentID, outcome, reason, sourceAPI)
}

// ReportPaymentOutcome lets staff record an outcome reported by the processor out of band.
func (s *PaymentService) ReportPaymentOutcome(ctx context.Context, caller Identity, req *ConfirmPaymentRequest) (*models.Transaction, error) {
	req.IntentID = strings.TrimSpace(req.IntentID)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid confirmation", utils.GetValidationErrors(err))
	}
	if !s.authorizer.Can(caller, CapReportPayments) {
		return nil, NewAuthorizationError("reporting payment outcomes requires the agent or admin role")
	}

	return s.confirm(ctx, req.IntentID, req.Outcome, req.Reason, sourceAPI)
}

// ConfirmWithToken confirms the intent with a processor-issued payment method token.
// A timeout leaves the transaction pending; the caller must check status before retrying.
func (s *PaymentService) ConfirmWithToken(ctx context.Context, caller Identity, intentID string, req *ConfirmWithTokenRequest) (*PaymentStatus, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid confirmation", utils.GetValidationErrors(err))
	}

	tx, err := s.getVisibleTransaction(ctx, caller, intentID)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsFinal() {
		return &PaymentStatus{Transaction: tx}, nil
	}

	result, err := s.gateway.ConfirmIntent(ctx, intentID, req.PaymentMethod)
	if err != nil {
		if appErr, ok := AsAppError(err); ok && appErr.Ambiguous {
			logrus.WithError(err).WithField("intent_id", intentID).Warn("Payment confirmation outcome unknown, transaction left pending")
		}
		return nil, err
	}

	if result.Outcome.IsTerminal() {
		tx, err = s.confirm(ctx, intentID, result.Outcome, result.Reason, sourceClient)
		if err != nil {
			return nil, err
		}
		return &PaymentStatus{Transaction: tx}, nil
	}

	return &PaymentStatus{Transaction: tx, RequiresAction: result.Outcome == OutcomeRequiresAction}, nil
}

// CheckPaymentStatus asks the processor about a pending transaction and reconciles it.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, caller Identity, intentID string) (*PaymentStatus, error) {
	tx, err := s.getVisibleTransaction(ctx, caller, intentID)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsFinal() {
		return &PaymentStatus{Transaction: tx}, nil
	}

	tx, result, err := s.syncTransaction(ctx, tx, sourceStatus)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{Transaction: tx, RequiresAction: result.Outcome == OutcomeRequiresAction}, nil
}

// ResolvePending reconciles a stale pending transaction against the processor. An intent
// still waiting for a payment method is treated as abandoned and canceled, otherwise it
// would block new payments for its application indefinitely.
func (s *PaymentService) ResolvePending(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	resolved, result, err := s.syncTransaction(ctx, tx, sourceReconciler)
	if err != nil {
		return nil, err
	}
	if resolved.Status.IsFinal() || !result.AwaitingPaymentMethod {
		return resolved, nil
	}

	canceled, err := s.gateway.CancelIntent(ctx, tx.ProcessorIntentID, CancelReasonAbandoned)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// The payer moved on since the read; the next sweep sees the new state
			return resolved, nil
		}
		return nil, err
	}
	if !canceled.Outcome.IsTerminal() {
		return resolved, nil
	}

	logrus.WithFields(logrus.Fields{
		"intent_id":      tx.ProcessorIntentID,
		"application_id": tx.ApplicationID,
	}).Info("Canceled abandoned payment intent")
	return s.confirm(ctx, tx.ProcessorIntentID, canceled.Outcome, canceled.Reason, sourceReconciler)
}

// HandleWebhook verifies and applies a processor notification. Events for unknown
// intents are acknowledged so the processor stops redelivering them.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: s.ignoreAPIVersion,
	})
	if err != nil {
		logrus.WithError(err).Warn("Rejected webhook")
		if isSignatureError(err) {
			return NewValidationError("invalid webhook signature", nil)
		}
		// Signed by the processor but not decodable by this build, usually an endpoint
		// pinned to a different API version
		return NewValidationError("unsupported webhook payload", map[string]string{"reason": err.Error()})
	}

	switch string(event.Type) {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		logrus.WithField("event_type", event.Type).Debug("Ignoring webhook event")
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return NewValidationError("invalid webhook payload", nil)
	}

	result := outcomeFromIntent(&pi)
	if !result.Outcome.IsTerminal() {
		return nil
	}

	_, err = s.confirm(ctx, pi.ID, result.Outcome, result.Reason, sourceWebhook)
	if errors.Is(err, ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"event_id":  event.ID,
			"intent_id": pi.ID,
		}).Warn("Webhook for unknown payment intent")
		return nil
	}
	return err
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func (s *PaymentService) ListTransactions(ctx context.Context, caller Identity, filter store.TransactionFilter) ([]models.Transaction, int64, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.TransactionStatusPending, models.TransactionStatusSuccess, models.TransactionStatusFailed:
		default:
			return nil, 0, NewValidationError("invalid status filter", map[string]string{"status": string(filter.Status)})
		}
	}

	if !s.authorizer.Can(caller, CapViewAll) {
		filter.PayerEmail = caller.Email
	} else {
		filter.PayerEmail = strings.ToLower(strings.TrimSpace(filter.PayerEmail))
	}

	txs, total, err := s.ledger.ListTransactions(ctx, filter)
	if err != nil {
		return nil, 0, storageError("list transactions", err)
	}
	return txs, total, nil
}

func (s *PaymentService) confirm(ctx context.Context, intentID string, outcome IntentOutcome, reason, source string) (*models.Transaction, error) {
	if !outcome.IsTerminal() {
		return nil, NewValidationError("outcome must be succeeded or failed", nil)
	}

	tx, err := s.getTransaction(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if tx.Status.IsFinal() {
		return s.alreadyFinal(ctx, tx, outcome, source)
	}

	status := models.TransactionStatusFailed
	if outcome == OutcomeSucceeded {
		status = models.TransactionStatusSuccess
		reason = ""
	}
	at := s.now().UTC()

	if err := s.ledger.Finalize(ctx, intentID, status, reason, at); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, storageError("finalize transaction", err)
		}
		// Someone else finalized it first; converge on their result
		winner, getErr := s.getTransaction(ctx, intentID)
		if getErr != nil {
			return nil, getErr
		}
		return s.alreadyFinal(ctx, winner, outcome, source)
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.ProcessedAt = &at
	tx.UpdatedAt = at

	metrics.PaymentOutcomes.WithLabelValues(string(status), source).Inc()
	logrus.WithFields(logrus.Fields{
		"intent_id":      intentID,
		"application_id": tx.ApplicationID,
		"status":         status,
		"source":         source,
	}).Info("Payment finalized")

	if status == models.TransactionStatusSuccess {
		if err := s.markPaid(ctx, tx); err != nil {
			return nil, err
		}
		s.notifyPaid(ctx, tx)
	}

	return tx, nil
}

// alreadyFinal handles repeated or late notifications. Success re-applies mark-paid so a
// crash between the two writes converges on retry.
func (s *PaymentService) alreadyFinal(ctx context.Context, tx *models.Transaction, outcome IntentOutcome, source string) (*models.Transaction, error) {
	if tx.Status == models.TransactionStatusSuccess {
		if err := s.markPaid(ctx, tx); err != nil {
			return nil, err
		}
	}

	if tx.Status == models.TransactionStatusFailed && outcome == OutcomeSucceeded {
		logrus.WithFields(logrus.Fields{
			"intent_id":      tx.ProcessorIntentID,
			"application_id": tx.ApplicationID,
			"source":         source,
		}).Error("Processor reported success for a failed transaction")
		s.recordLateSuccess(ctx, tx, source)
	}

	return tx, nil
}

func (s *PaymentService) markPaid(ctx context.Context, tx *models.Transaction) error {
	at := s.now().UTC()
	if tx.ProcessedAt != nil {
		at = *tx.ProcessedAt
	}
	if err := s.apps.MarkPaid(ctx, tx.ApplicationID, at); err != nil {
		return storageError("mark application paid", err)
	}
	return nil
}

func (s *PaymentService) syncTransaction(ctx context.Context, tx *models.Transaction, source string) (*models.Transaction, *IntentResult, error) {
	result, err := s.gateway.GetIntent(ctx, tx.ProcessorIntentID)
	if err != nil {
		return nil, nil, err
	}

	if !result.Outcome.IsTerminal() {
		return tx, result, nil
	}

	resolved, err := s.confirm(ctx, tx.ProcessorIntentID, result.Outcome, result.Reason, source)
	if err != nil {
		return nil, nil, err
	}
	return resolved, result, nil
}

// releaseIntent cancels an intent that was created but never recorded, so it cannot be
// confirmed later without a ledger row. Failures are logged only.
func (s *PaymentService) releaseIntent(ctx context.Context, intentID, reason string) {
	if _, err := s.gateway.CancelIntent(context.WithoutCancel(ctx), intentID, reason); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"intent_id": intentID,
			"reason":    reason,
		}).Error("Failed to cancel unrecorded payment intent")
	}
}

func (s *PaymentService) ensureNoPaymentInFlight(ctx context.Context, applicationID uuid.UUID) error {
	pending, _, err := s.ledger.ListTransactions(ctx, store.TransactionFilter{
		ApplicationID: &applicationID,
		Status:        models.TransactionStatusPending,
	})
	if err != nil {
		return storageError("list pending transactions", err)
	}

	for i := range pending {
		tx, _, err := s.syncTransaction(ctx, &pending[i], sourceStatus)
		if err != nil {
			return err
		}
		switch tx.Status {
		case models.TransactionStatusPending:
			return NewInvalidTransitionError("a payment for this application is already in progress")
		case models.TransactionStatusSuccess:
			return NewInvalidTransitionError("application is already paid")
		}
	}
	return nil
}

func (s *PaymentService) getTransaction(ctx context.Context, intentID string) (*models.Transaction, error) {
	tx, err := s.ledger.GetByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("transaction")
		}
		return nil, storageError("get transaction", err)
	}
	return tx, nil
}

func (s *PaymentService) getVisibleTransaction(ctx context.Context, caller Identity, intentID string) (*models.Transaction, error) {
	tx, err := s.getTransaction(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !s.canSee(caller, tx.PayerEmail) {
		return nil, NewNotFoundError("transaction")
	}
	return tx, nil
}

func (s *PaymentService) canSee(caller Identity, ownerEmail string) bool {
	return caller.OwnsEmail(ownerEmail) || s.authorizer.Can(caller, CapViewAll)
}

func (s *PaymentService) recordLateSuccess(ctx context.Context, tx *models.Transaction, source string) {
	if s.audit == nil {
		return
	}

	entry := &models.AuditLog{
		Action:       "payment.late_success",
		ResourceType: "transaction",
		ResourceID:   tx.ProcessorIntentID,
		OldValues:    models.JSONB{"status": string(tx.Status)},
		NewValues:    models.JSONB{"outcome": string(OutcomeSucceeded), "source": source},
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		logrus.WithError(err).Error("Failed to create audit log")
	}
}

func (s *PaymentService) notifyPaid(ctx context.Context, tx *models.Transaction) {
	if s.notifier == nil {
		return
	}

	app, err := s.apps.GetApplication(ctx, tx.ApplicationID)
	if err != nil {
		logrus.WithError(err).WithField("application_id", tx.ApplicationID).Warn("Skipping payment receipt")
		return
	}

	snapshot := tx.Clone()
	go func() {
		if err := s.notifier.PaymentReceived(app, snapshot); err != nil {
			logrus.WithError(err).WithField("intent_id", snapshot.ProcessorIntentID).Warn("Failed to send notification")
		}
	}()
}
