package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
)

const testWebhookSecret = "whsec_test_secret"

type PaymentServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.MemoryStore
	gateway *mockGateway
	service *PaymentService
}

func (suite *PaymentServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = store.NewMemoryStore()
	suite.gateway = new(mockGateway)
	suite.service = NewPaymentService(suite.store, suite.store, suite.store, suite.gateway, NewRoleAuthorizer(), nil, config.PaymentConfig{
		StripeWebhookSecret: testWebhookSecret,
		DefaultCurrency:     "USD",
	})
}

func (suite *PaymentServiceTestSuite) initiate(app *models.Application, intentID string) *PaymentIntentResponse {
	suite.gateway.On("CreateIntent", mock.Anything, int64(5000), "usd", mock.Anything).
		Return(&Intent{ID: intentID, ClientSecret: intentID + "_secret_abc", Outcome: OutcomeRequiresAction}, nil).Once()

	resp, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{
		ApplicationID: app.ID,
		Amount:        5000,
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *PaymentServiceTestSuite) seedPending(app *models.Application, intentID string) {
	suite.Require().NoError(suite.store.CreateTransaction(suite.ctx, &models.Transaction{
		ProcessorIntentID: intentID,
		ApplicationID:     app.ID,
		PayerEmail:        app.Email,
		Amount:            5000,
		Currency:          "usd",
		Status:            models.TransactionStatusPending,
	}))
}

func (suite *PaymentServiceTestSuite) TestInitiateThenConfirmTwice() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)

	resp := suite.initiate(app, "pi_1")
	suite.Equal("pi_1", resp.IntentID)
	suite.Equal("pi_1_secret_abc", resp.ClientSecret)
	suite.Equal(models.TransactionStatusPending, resp.Transaction.Status)
	suite.Equal("usd", resp.Transaction.Currency)

	first, err := suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeSucceeded, "")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusSuccess, first.Status)
	suite.Equal(int64(5000), first.Amount)
	suite.Require().NotNil(first.ProcessedAt)

	second, err := suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeSucceeded, "")
	suite.Require().NoError(err)
	suite.Equal(first.ID, second.ID)
	suite.Equal(first.Status, second.Status)
	suite.Equal(first.Amount, second.Amount)
	suite.True(first.ProcessedAt.Equal(*second.ProcessedAt))

	txs, total, err := suite.store.ListTransactions(suite.ctx, store.TransactionFilter{ApplicationID: &app.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(models.TransactionStatusSuccess, txs[0].Status)

	paid, err := suite.store.GetApplication(suite.ctx, app.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(paid.PaidAt)
	suite.True(paid.PaidAt.Equal(*first.ProcessedAt))

	suite.gateway.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestInitiateRequiresApprovedApplication() {
	for _, status := range []models.ApplicationStatus{models.ApplicationStatusPending, models.ApplicationStatusRejected} {
		app := seedApplication(suite.store, "a@x.com", status)

		_, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
		suite.ErrorIs(err, ErrInvalidTransition)
	}

	suite.gateway.AssertNotCalled(suite.T(), "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PaymentServiceTestSuite) TestInitiateRejectsPaidApplication() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.Require().NoError(suite.store.MarkPaid(suite.ctx, app.ID, time.Now()))

	_, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
	suite.ErrorIs(err, ErrInvalidTransition)
}

func (suite *PaymentServiceTestSuite) TestInitiateValidation() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)

	tests := []struct {
		name string
		req  *InitiatePaymentRequest
	}{
		{"zero amount", &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 0}},
		{"negative amount", &InitiatePaymentRequest{ApplicationID: app.ID, Amount: -100}},
		{"short currency", &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000, Currency: "us"}},
		{"missing application", &InitiatePaymentRequest{Amount: 5000}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.InitiatePayment(suite.ctx, customerA, tt.req)
			suite.ErrorIs(err, ErrValidation)
		})
	}
}

func (suite *PaymentServiceTestSuite) TestInitiateHidesOtherCustomersApplications() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)

	_, err := suite.service.InitiatePayment(suite.ctx, customerB, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: uuid.New(), Amount: 5000})
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *PaymentServiceTestSuite) TestInitiateGatewayFailureRecordsNothing() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.gateway.On("CreateIntent", mock.Anything, int64(5000), "eur", mock.Anything).
		Return(nil, NewUpstreamError("failed to create payment intent", errors.New("502 bad gateway"))).Once()

	_, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000, Currency: "EUR"})
	suite.Require().ErrorIs(err, ErrUpstream)

	appErr, _ := AsAppError(err)
	suite.Equal(HintSafeToResubmit, appErr.Hint())

	_, total, err := suite.store.ListTransactions(suite.ctx, store.TransactionFilter{ApplicationID: &app.ID})
	suite.Require().NoError(err)
	suite.Zero(total)
}

func (suite *PaymentServiceTestSuite) TestInitiateBlockedWhilePaymentInFlight() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.seedPending(app, "pi_old")
	suite.gateway.On("GetIntent", mock.Anything, "pi_old").
		Return(&IntentResult{IntentID: "pi_old", Outcome: OutcomeProcessing}, nil).Once()

	_, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
	suite.ErrorIs(err, ErrInvalidTransition)
	suite.gateway.AssertNotCalled(suite.T(), "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PaymentServiceTestSuite) TestConcurrentInitiationsOpenOneCharge() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)

	gateway := &barrierGateway{}
	gateway.arrived.Add(2)
	service := NewPaymentService(suite.store, suite.store, suite.store, gateway, NewRoleAuthorizer(), nil, config.PaymentConfig{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidTransition):
			rejected++
		default:
			suite.Failf("unexpected error", "%v", err)
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(1, rejected)

	pending, total, err := suite.store.ListTransactions(suite.ctx, store.TransactionFilter{
		ApplicationID: &app.ID,
		Status:        models.TransactionStatusPending,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	// The losing intent is canceled at the processor, never the recorded one
	canceled := gateway.canceledIntents()
	suite.Require().Len(canceled, 1)
	suite.NotEqual(pending[0].ProcessorIntentID, canceled[0].intentID)
	suite.Equal(CancelReasonDuplicate, canceled[0].reason)
}

func (suite *PaymentServiceTestSuite) TestInitiateReleasesIntentWhenLedgerWriteFails() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	ledger := &failingLedger{MemoryStore: suite.store}
	service := NewPaymentService(suite.store, ledger, suite.store, suite.gateway, NewRoleAuthorizer(), nil, config.PaymentConfig{})

	suite.gateway.On("CreateIntent", mock.Anything, int64(5000), "usd", mock.Anything).
		Return(&Intent{ID: "pi_orphan", ClientSecret: "pi_orphan_secret"}, nil).Once()
	suite.gateway.On("CancelIntent", mock.Anything, "pi_orphan", CancelReasonAbandoned).
		Return(&IntentResult{IntentID: "pi_orphan", Outcome: OutcomeFailed}, nil).Once()

	_, err := service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
	suite.ErrorIs(err, ErrUpstream)

	suite.gateway.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestInitiateAfterEarlierAttemptFailed() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.seedPending(app, "pi_old")
	suite.gateway.On("GetIntent", mock.Anything, "pi_old").
		Return(&IntentResult{IntentID: "pi_old", Outcome: OutcomeFailed, Reason: "payment intent canceled: abandoned"}, nil).Once()

	resp := suite.initiate(app, "pi_new")
	suite.Equal("pi_new", resp.IntentID)

	old, err := suite.store.GetByIntentID(suite.ctx, "pi_old")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusFailed, old.Status)
	suite.Equal("payment intent canceled: abandoned", old.FailureReason)
}

func (suite *PaymentServiceTestSuite) TestInitiateDiscoversEarlierSuccess() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.seedPending(app, "pi_old")
	suite.gateway.On("GetIntent", mock.Anything, "pi_old").
		Return(&IntentResult{IntentID: "pi_old", Outcome: OutcomeSucceeded}, nil).Once()

	_, err := suite.service.InitiatePayment(suite.ctx, customerA, &InitiatePaymentRequest{ApplicationID: app.ID, Amount: 5000})
	suite.ErrorIs(err, ErrInvalidTransition)

	paid, err := suite.store.GetApplication(suite.ctx, app.ID)
	suite.Require().NoError(err)
	suite.NotNil(paid.PaidAt)
}

func (suite *PaymentServiceTestSuite) TestConfirmTimeoutLeavesTransactionPending() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	suite.gateway.On("ConfirmIntent", mock.Anything, "pi_1", "pm_card_visa").
		Return(nil, NewAmbiguousUpstreamError("payment confirmation outcome unknown", context.DeadlineExceeded)).Once()

	_, err := suite.service.ConfirmWithToken(suite.ctx, customerA, "pi_1", &ConfirmWithTokenRequest{PaymentMethod: "pm_card_visa"})
	suite.Require().ErrorIs(err, ErrUpstream)

	appErr, _ := AsAppError(err)
	suite.True(appErr.Ambiguous)
	suite.False(appErr.Retryable)
	suite.Equal(HintCheckBeforeRetry, appErr.Hint())

	tx, err := suite.store.GetByIntentID(suite.ctx, "pi_1")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusPending, tx.Status)

	// The charge did go through; a status check settles it
	suite.gateway.On("GetIntent", mock.Anything, "pi_1").
		Return(&IntentResult{IntentID: "pi_1", Outcome: OutcomeSucceeded}, nil).Once()

	status, err := suite.service.CheckPaymentStatus(suite.ctx, customerA, "pi_1")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusSuccess, status.Transaction.Status)
	suite.False(status.RequiresAction)
}

func (suite *PaymentServiceTestSuite) TestConfirmWithDeclinedCard() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	suite.gateway.On("ConfirmIntent", mock.Anything, "pi_1", "pm_card_chargeDeclined").
		Return(&IntentResult{IntentID: "pi_1", Outcome: OutcomeFailed, Reason: "Your card was declined."}, nil).Once()

	status, err := suite.service.ConfirmWithToken(suite.ctx, customerA, "pi_1", &ConfirmWithTokenRequest{PaymentMethod: "pm_card_chargeDeclined"})
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusFailed, status.Transaction.Status)
	suite.Equal("Your card was declined.", status.Transaction.FailureReason)

	unpaid, err := suite.store.GetApplication(suite.ctx, app.ID)
	suite.Require().NoError(err)
	suite.Nil(unpaid.PaidAt)
}

func (suite *PaymentServiceTestSuite) TestConfirmRequiringAction() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	suite.gateway.On("ConfirmIntent", mock.Anything, "pi_1", "pm_card_threeDSecure2Required").
		Return(&IntentResult{IntentID: "pi_1", Outcome: OutcomeRequiresAction}, nil).Once()

	status, err := suite.service.ConfirmWithToken(suite.ctx, customerA, "pi_1", &ConfirmWithTokenRequest{PaymentMethod: "pm_card_threeDSecure2Required"})
	suite.Require().NoError(err)
	suite.True(status.RequiresAction)
	suite.Equal(models.TransactionStatusPending, status.Transaction.Status)
}

func (suite *PaymentServiceTestSuite) TestConfirmWithTokenOnFinalTransactionSkipsGateway() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")
	_, err := suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeSucceeded, "")
	suite.Require().NoError(err)

	status, err := suite.service.ConfirmWithToken(suite.ctx, customerA, "pi_1", &ConfirmWithTokenRequest{PaymentMethod: "pm_card_visa"})
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusSuccess, status.Transaction.Status)
	suite.gateway.AssertNotCalled(suite.T(), "ConfirmIntent", mock.Anything, mock.Anything, mock.Anything)

	_, err = suite.service.ConfirmWithToken(suite.ctx, customerB, "pi_1", &ConfirmWithTokenRequest{PaymentMethod: "pm_card_visa"})
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *PaymentServiceTestSuite) TestConfirmUnknownIntent() {
	_, err := suite.service.ConfirmPayment(suite.ctx, "pi_missing", OutcomeSucceeded, "")
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.service.ConfirmPayment(suite.ctx, "pi_missing", OutcomeProcessing, "")
	suite.ErrorIs(err, ErrValidation)
}

func (suite *PaymentServiceTestSuite) TestConcurrentConfirmationsConverge() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	const callers = 16
	results := make([]*models.Transaction, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeSucceeded, "")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		suite.Require().NoError(errs[i])
		suite.Equal(models.TransactionStatusSuccess, results[i].Status)
		suite.True(results[0].ProcessedAt.Equal(*results[i].ProcessedAt))
	}
}

func (suite *PaymentServiceTestSuite) TestLateSuccessAfterFailureIsAudited() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	failed, err := suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeFailed, "insufficient funds")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusFailed, failed.Status)

	late, err := suite.service.ConfirmPayment(suite.ctx, "pi_1", OutcomeSucceeded, "")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusFailed, late.Status)
	suite.Equal("insufficient funds", late.FailureReason)

	logs := suite.store.AuditLogs()
	suite.Require().Len(logs, 1)
	suite.Equal("payment.late_success", logs[0].Action)
	suite.Equal("pi_1", logs[0].ResourceID)

	unpaid, err := suite.store.GetApplication(suite.ctx, app.ID)
	suite.Require().NoError(err)
	suite.Nil(unpaid.PaidAt)
}

func (suite *PaymentServiceTestSuite) TestReportPaymentOutcomeRequiresStaff() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	_, err := suite.service.ReportPaymentOutcome(suite.ctx, customerA, &ConfirmPaymentRequest{IntentID: "pi_1", Outcome: OutcomeSucceeded})
	suite.ErrorIs(err, ErrAuthorization)

	tx, err := suite.service.ReportPaymentOutcome(suite.ctx, agent, &ConfirmPaymentRequest{IntentID: "pi_1", Outcome: OutcomeSucceeded})
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusSuccess, tx.Status)

	_, err = suite.service.ReportPaymentOutcome(suite.ctx, agent, &ConfirmPaymentRequest{IntentID: "pi_1", Outcome: "refunded"})
	suite.ErrorIs(err, ErrValidation)
}

func (suite *PaymentServiceTestSuite) TestWebhookSucceeded() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	payload := webhookPayload("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","status":"succeeded"}`)
	suite.Require().NoError(suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret)))

	tx, err := suite.store.GetByIntentID(suite.ctx, "pi_1")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusSuccess, tx.Status)

	// Redelivery is harmless
	suite.Require().NoError(suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret)))
}

func (suite *PaymentServiceTestSuite) TestWebhookPaymentFailed() {
	app := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	suite.initiate(app, "pi_1")

	payload := webhookPayload("payment_intent.payment_failed",
		`{"id":"pi_1","object":"payment_intent","status":"requires_payment_method","last_payment_error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	suite.Require().NoError(suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret)))

	tx, err := suite.store.GetByIntentID(suite.ctx, "pi_1")
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusFailed, tx.Status)
	suite.Equal("Your card was declined.", tx.FailureReason)
}

func (suite *PaymentServiceTestSuite) TestWebhookRejectsBadSignature() {
	payload := webhookPayload("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","status":"succeeded"}`)

	err := suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, "whsec_wrong"))
	suite.Require().ErrorIs(err, ErrValidation)
	appErr, _ := AsAppError(err)
	suite.Equal("invalid webhook signature", appErr.Message)

	err = suite.service.HandleWebhook(suite.ctx, payload, "")
	suite.ErrorIs(err, ErrValidation)
}

func (suite *PaymentServiceTestSuite) TestWebhookForAnotherAPIVersion() {
	payload := []byte(`{"id":"evt_old","object":"event","api_version":"2019-02-19","type":"payment_intent.succeeded",` +
		`"data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded"}}}`)

	err := suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret))
	suite.Require().ErrorIs(err, ErrValidation)
	appErr, _ := AsAppError(err)
	suite.Equal("unsupported webhook payload", appErr.Message)

	lenient := NewPaymentService(suite.store, suite.store, suite.store, suite.gateway, NewRoleAuthorizer(), nil, config.PaymentConfig{
		StripeWebhookSecret:           testWebhookSecret,
		StripeWebhookIgnoreAPIVersion: true,
	})
	suite.NoError(lenient.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret)))
}

func (suite *PaymentServiceTestSuite) TestWebhookAcknowledgesUnknownIntentsAndEvents() {
	payload := webhookPayload("payment_intent.succeeded", `{"id":"pi_unknown","object":"payment_intent","status":"succeeded"}`)
	suite.NoError(suite.service.HandleWebhook(suite.ctx, payload, signWebhook(payload, testWebhookSecret)))

	other := webhookPayload("customer.created", `{"id":"cus_1","object":"customer"}`)
	suite.NoError(suite.service.HandleWebhook(suite.ctx, other, signWebhook(other, testWebhookSecret)))
}

func (suite *PaymentServiceTestSuite) TestListTransactionsScopesCustomers() {
	appA := seedApplication(suite.store, "a@x.com", models.ApplicationStatusApproved)
	appB := seedApplication(suite.store, "b@x.com", models.ApplicationStatusApproved)
	suite.seedPending(appA, "pi_a")
	suite.seedPending(appB, "pi_b")

	txs, total, err := suite.service.ListTransactions(suite.ctx, customerA, store.TransactionFilter{PayerEmail: "b@x.com"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("pi_a", txs[0].ProcessorIntentID)

	_, total, err = suite.service.ListTransactions(suite.ctx, admin, store.TransactionFilter{})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func webhookPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_test","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object))
}

func signWebhook(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
