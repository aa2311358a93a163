package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
)

var (
	customerA = Identity{UserID: "u-a", Email: "a@x.com", Role: models.RoleCustomer}
	customerB = Identity{UserID: "u-b", Email: "b@x.com", Role: models.RoleCustomer}
	agent     = Identity{UserID: "u-agent", Email: "agent@x.com", Role: models.RoleAgent}
	admin     = Identity{UserID: "u-admin", Email: "admin@x.com", Role: models.RoleAdmin}
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if intent, ok := args.Get(0).(*Intent); ok {
		return intent, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodToken string) (*IntentResult, error) {
	args := m.Called(ctx, intentID, paymentMethodToken)
	if result, ok := args.Get(0).(*IntentResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) GetIntent(ctx context.Context, intentID string) (*IntentResult, error) {
	args := m.Called(ctx, intentID)
	if result, ok := args.Get(0).(*IntentResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) CancelIntent(ctx context.Context, intentID, reason string) (*IntentResult, error) {
	args := m.Called(ctx, intentID, reason)
	if result, ok := args.Get(0).(*IntentResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

type canceledIntent struct {
	intentID string
	reason   string
}

// barrierGateway holds every CreateIntent until `arrived` reaches zero, so concurrent
// initiations all get past their in-flight check before any of them records an intent.
type barrierGateway struct {
	arrived  sync.WaitGroup
	seq      atomic.Int64
	mu       sync.Mutex
	canceled []canceledIntent
}

func (g *barrierGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	g.arrived.Done()
	g.arrived.Wait()
	id := fmt.Sprintf("pi_concurrent_%d", g.seq.Add(1))
	return &Intent{ID: id, ClientSecret: id + "_secret", Outcome: OutcomeRequiresAction}, nil
}

func (g *barrierGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodToken string) (*IntentResult, error) {
	return nil, errors.New("not used")
}

func (g *barrierGateway) GetIntent(ctx context.Context, intentID string) (*IntentResult, error) {
	return &IntentResult{IntentID: intentID, Outcome: OutcomeRequiresAction, AwaitingPaymentMethod: true}, nil
}

func (g *barrierGateway) CancelIntent(ctx context.Context, intentID, reason string) (*IntentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, canceledIntent{intentID: intentID, reason: reason})
	return &IntentResult{IntentID: intentID, Outcome: OutcomeFailed, Reason: "payment canceled: " + reason}, nil
}

func (g *barrierGateway) canceledIntents() []canceledIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]canceledIntent(nil), g.canceled...)
}

// failingLedger loses every transaction write.
type failingLedger struct {
	*store.MemoryStore
}

func (l *failingLedger) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return errors.New("pq: canceling statement due to statement timeout")
}

// flakyApplicationStore fails writes as a dropped database connection would.
type flakyApplicationStore struct {
	*store.MemoryStore
}

func (s *flakyApplicationStore) CreateApplication(ctx context.Context, app *models.Application) error {
	return errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

func validSubmission(email string) *SubmitApplicationRequest {
	return &SubmitApplicationRequest{
		FullName:   "Ada Lovelace",
		Email:      email,
		Address:    "12 St James's Square, London",
		NationalID: "NI-100200",
		Nominee: NomineeRequest{
			Name:         "Byron Lovelace",
			Relationship: "child",
		},
		HealthConditions: []string{models.HealthConditionNone},
		InsuranceType:    models.InsuranceTypeLife,
		CoverageAmount:   50000,
		PaymentTerm:      models.PaymentTermAnnual,
	}
}

func seedApplication(s *store.MemoryStore, email string, status models.ApplicationStatus) *models.Application {
	app := &models.Application{
		FullName:            "Ada Lovelace",
		Email:               email,
		Address:             "12 St James's Square, London",
		NationalID:          "NI-100200",
		NomineeName:         "Byron Lovelace",
		NomineeRelationship: "child",
		HealthConditions:    []string{models.HealthConditionNone},
		InsuranceType:       models.InsuranceTypeLife,
		CoverageAmount:      50000,
		PaymentTerm:         models.PaymentTermAnnual,
		Status:              status,
		ApplicationDate:     time.Now(),
	}
	if err := s.CreateApplication(context.Background(), app); err != nil {
		panic(err)
	}
	return app
}
