// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// ApplicationService owns the application state machine: pending -> approved | rejected.
type ApplicationService struct {
	store      store.ApplicationStore
	audit      store.AuditLogStore
	authorizer Authorizer
	notifier   Notifier
	now        func() time.Time
}

type NomineeRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Relationship string `json:"relationship" validate:"required,max=100"`
}

type SubmitApplicationRequest struct {
	FullName         string               `json:"full_name" validate:"required,max=255"`
	Email            string               `json:"email" validate:"required,email,max=255"`
	Address          string               `json:"address" validate:"required,max=500"`
	NationalID       string               `json:"national_id" validate:"required,max=64"`
	Nominee          NomineeRequest       `json:"nominee"`
	HealthConditions []string             `json:"health_conditions" validate:"required,health_conditions"`
	InsuranceType    models.InsuranceType `json:"insurance_type" validate:"required,oneof=life health auto home travel"`
	CoverageAmount   int64                `json:"coverage_amount" validate:"required,gt=0"`
	PaymentTerm      models.PaymentTerm   `json:"payment_term" validate:"required,oneof=monthly quarterly semi_annual annual"`
}

type ReviewApplicationRequest struct {
	Decision models.ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
	Note     string                `json:"note" validate:"max=1000"`
}

func NewApplicationService(apps store.ApplicationStore, audit store.AuditLogStore, authorizer Authorizer, notifier Notifier) *ApplicationService {
	return &ApplicationService{
		store:      apps,
		audit:      audit,
		authorizer: authorizer,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (r *SubmitApplicationRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Address = strings.TrimSpace(r.Address)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.Nominee.Name = strings.TrimSpace(r.Nominee.Name)
	r.Nominee.Relationship = strings.TrimSpace(r.Nominee.Relationship)
	for i, c := range r.HealthConditions {
		r.HealthConditions[i] = strings.ToLower(strings.TrimSpace(c))
	}
}

func (s *ApplicationService) SubmitApplication(ctx context.Context, caller Identity, req *SubmitApplicationRequest) (*models.Application, error) {
	req.normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid application", utils.GetValidationErrors(err))
	}

	// Customers apply for themselves; agents may submit on behalf of an applicant
	if caller.IsCustomer() && !caller.OwnsEmail(req.Email) {
		return nil, NewAuthorizationError("customers can only submit applications under their own email")
	}

	app := &models.Application{
		FullName:            req.FullName,
		Email:               req.Email,
		Address:             req.Address,
		NationalID:          req.NationalID,
		NomineeName:         req.Nominee.Name,
		NomineeRelationship: req.Nominee.Relationship,
		HealthConditions:    append([]string(nil), req.HealthConditions...),
		InsuranceType:       req.InsuranceType,
		CoverageAmount:      req.CoverageAmount,
		PaymentTerm:         req.PaymentTerm,
		Status:              models.ApplicationStatusPending,
		ApplicationDate:     s.now().UTC(),
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, storageError("create application", err)
	}

	metrics.ApplicationsSubmitted.WithLabelValues(string(app.InsuranceType)).Inc()
	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"insurance_type": app.InsuranceType,
		"submitted_by":   caller.Email,
	}).Info("Application submitted")

	s.notify("application_received", app, func(n Notifier, a *models.Application) error {
		return n.ApplicationReceived(a)
	})

	return app, nil
}

func (s *ApplicationService) ReviewApplication(ctx context.Context, reviewer Identity, id uuid.UUID, req *ReviewApplicationRequest) (*models.Application, error) {
	req.Note = strings.TrimSpace(req.Note)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid review", utils.GetValidationErrors(err))
	}

	if !s.authorizer.Can(reviewer, CapReviewApplications) {
		return nil, NewAuthorizationError("reviewing applications requires the agent or admin role")
	}

	app, err := s.getApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	if app.Status != models.ApplicationStatusPending {
		s.recordRejectedTransition(ctx, reviewer, app.ID, app.Status, req.Decision)
		return nil, NewInvalidTransitionError("application is already " + string(app.Status))
	}

	to, _ := req.Decision.TargetStatus()
	review := models.Review{By: reviewer.Email, At: s.now().UTC(), Note: req.Note}

	// Compare-and-set on status; a concurrent reviewer that won leaves zero rows to update
	if err := s.store.TransitionStatus(ctx, id, models.ApplicationStatusPending, to, review); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, storageError("update application status", err)
		}

		current, getErr := s.getApplication(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		s.recordRejectedTransition(ctx, reviewer, id, current.Status, req.Decision)
		return nil, NewInvalidTransitionError("application is already " + string(current.Status))
	}

	app.Status = to
	app.ReviewedBy = review.By
	app.ReviewedAt = &review.At
	app.ReviewNote = review.Note
	app.UpdatedAt = review.At

	metrics.ApplicationReviews.WithLabelValues(string(req.Decision)).Inc()
	logrus.WithFields(logrus.Fields{
		"application_id": id,
		"status":         to,
		"reviewed_by":    reviewer.Email,
	}).Info("Application reviewed")

	s.notify("application_reviewed", app, func(n Notifier, a *models.Application) error {
		return n.ApplicationReviewed(a)
	})

	return app, nil
}

// GetApplication hides applications the caller may not see behind NotFound.
func (s *ApplicationService) GetApplication(ctx context.Context, caller Identity, id uuid.UUID) (*models.Application, error) {
	app, err := s.getApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.authorizer.Can(caller, CapViewAll) && !caller.OwnsEmail(app.Email) {
		return nil, NewNotFoundError("application")
	}
	return app, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context, caller Identity, filter store.ApplicationFilter) ([]models.Application, int64, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.ApplicationStatusPending, models.ApplicationStatusApproved, models.ApplicationStatusRejected:
		default:
			return nil, 0, NewValidationError("invalid status filter", map[string]string{"status": string(filter.Status)})
		}
	}

	// Customers only ever see their own applications
	if !s.authorizer.Can(caller, CapViewAll) {
		filter.Email = caller.Email
	} else {
		filter.Email = strings.ToLower(strings.TrimSpace(filter.Email))
	}

	apps, total, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, 0, storageError("list applications", err)
	}
	return apps, total, nil
}

func (s *ApplicationService) getApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("application")
		}
		return nil, storageError("get application", err)
	}
	return app, nil
}

// recordRejectedTransition keeps a trail of reviews that lost a race or arrived too late.
func (s *ApplicationService) recordRejectedTransition(ctx context.Context, reviewer Identity, id uuid.UUID, current models.ApplicationStatus, decision models.ReviewDecision) {
	metrics.TransitionConflicts.Inc()
	logrus.WithFields(logrus.Fields{
		"application_id": id,
		"current_status": current,
		"decision":       decision,
		"reviewer":       reviewer.Email,
	}).Warn("Rejected application transition, possible concurrent review")

	if s.audit == nil {
		return
	}

	entry := &models.AuditLog{
		ActorEmail:   reviewer.Email,
		ActorRole:    reviewer.Role,
		Action:       "application.review_rejected",
		ResourceType: "application",
		ResourceID:   id.String(),
		OldValues:    models.JSONB{"status": string(current)},
		NewValues:    models.JSONB{"decision": string(decision)},
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		logrus.WithError(err).Error("Failed to create audit log")
	}
}

func (s *ApplicationService) notify(kind string, app *models.Application, send func(Notifier, *models.Application) error) {
	if s.notifier == nil {
		return
	}

	snapshot := app.Clone()
	go func() {
		if err := send(s.notifier, snapshot); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"application_id": snapshot.ID,
				"notification":   kind,
			}).Warn("Failed to send notification")
		}
	}()
}
