// internal/services/payment_gateway.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/metrics"
)

type IntentOutcome string

const (
	OutcomeSucceeded      IntentOutcome = "succeeded"
	OutcomeRequiresAction IntentOutcome = "requires_action"
	OutcomeProcessing     IntentOutcome = "processing"
	OutcomeFailed         IntentOutcome = "failed"
)

// IsTerminal reports whether the outcome can finalize a transaction.
func (o IntentOutcome) IsTerminal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

type Intent struct {
	ID           string
	ClientSecret string
	Outcome      IntentOutcome
}

type IntentResult struct {
	IntentID string
	Outcome  IntentOutcome
	Reason   string
	// AwaitingPaymentMethod is set when the payer never supplied a payment method.
	// Such an intent stays open at the processor until it is canceled.
	AwaitingPaymentMethod bool
}

// Cancellation reasons accepted by CancelIntent.
const (
	CancelReasonAbandoned = string(stripe.PaymentIntentCancellationReasonAbandoned)
	CancelReasonDuplicate = string(stripe.PaymentIntentCancellationReasonDuplicate)
)

// PaymentGateway is the only component that talks to the payment processor.
// Implementations never retry: a repeated confirm could charge twice.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodToken string) (*IntentResult, error)
	GetIntent(ctx context.Context, intentID string) (*IntentResult, error)
	CancelIntent(ctx context.Context, intentID, reason string) (*IntentResult, error)
}

type StripeGateway struct {
	client  *client.API
	timeout time.Duration
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.GatewayTimeout}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logrus.StandardLogger(),
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.StripeAPIURL != "" {
		backendConfig.URL = stripe.String(cfg.StripeAPIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeGateway{
		client:  client.New(cfg.StripeSecretKey, backends),
		timeout: cfg.GatewayTimeout,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	if amount <= 0 {
		return nil, NewValidationError("amount must be a positive integer in minor units", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	pi, err := g.client.PaymentIntents.New(params)
	observeGateway("create_intent", start, err)
	if err != nil {
		// Nothing was charged; a fresh intent can be created safely
		return nil, NewUpstreamError("failed to create payment intent", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Outcome:      outcomeFromIntent(pi).Outcome,
	}, nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodToken string) (*IntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodToken),
	}
	params.Context = ctx

	start := time.Now()
	pi, err := g.client.PaymentIntents.Confirm(intentID, params)
	observeGateway("confirm_intent", start, err)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			// A decline is a definite answer, not an infrastructure failure
			if stripeErr.Type == stripe.ErrorTypeCard {
				return &IntentResult{IntentID: intentID, Outcome: OutcomeFailed, Reason: stripeErr.Msg}, nil
			}
			if stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < http.StatusInternalServerError {
				return nil, NewUpstreamError("payment processor rejected the confirmation", err)
			}
		}
		// Timeouts, dropped connections and 5xx: the charge may have gone through
		return nil, NewAmbiguousUpstreamError("payment confirmation outcome unknown", err)
	}

	result := outcomeFromIntent(pi)
	return &result, nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*IntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	start := time.Now()
	pi, err := g.client.PaymentIntents.Get(intentID, params)
	observeGateway("get_intent", start, err)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, NewNotFoundError("payment intent")
		}
		return nil, NewUpstreamError("failed to fetch payment intent", err)
	}

	result := outcomeFromIntent(pi)
	return &result, nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID, reason string) (*IntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(reason),
	}
	params.Context = ctx

	start := time.Now()
	pi, err := g.client.PaymentIntents.Cancel(intentID, params)
	observeGateway("cancel_intent", start, err)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if stripeErr.HTTPStatusCode == http.StatusNotFound {
				return nil, NewNotFoundError("payment intent")
			}
			// Already succeeded, processing or canceled; the caller re-reads the intent
			if stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < http.StatusInternalServerError {
				return nil, NewInvalidTransitionError("payment intent can no longer be canceled")
			}
		}
		return nil, NewUpstreamError("failed to cancel payment intent", err)
	}

	result := outcomeFromIntent(pi)
	return &result, nil
}

// outcomeFromIntent maps the processor's intent status onto the four outcomes the
// lifecycle understands.
func outcomeFromIntent(pi *stripe.PaymentIntent) IntentResult {
	result := IntentResult{IntentID: pi.ID}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Outcome = OutcomeSucceeded
	case stripe.PaymentIntentStatusCanceled:
		result.Outcome = OutcomeFailed
		result.Reason = "payment canceled"
		if pi.CancellationReason != "" {
			result.Reason = fmt.Sprintf("payment canceled: %s", pi.CancellationReason)
		}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// Fresh intents start here too; only a recorded decline makes it a failure
		if pi.LastPaymentError != nil {
			result.Outcome = OutcomeFailed
			result.Reason = pi.LastPaymentError.Msg
		} else {
			result.Outcome = OutcomeRequiresAction
			result.AwaitingPaymentMethod = true
		}
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		result.Outcome = OutcomeProcessing
	default:
		result.Outcome = OutcomeRequiresAction
	}

	return result
}

func observeGateway(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if isTimeout(err) {
			result = "timeout"
		}
	}
	metrics.GatewayRequestDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
