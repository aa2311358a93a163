// internal/services/access.go
package services

import (
	"strings"

	"github.com/javajoker/insurance-backend/internal/models"
)

// Identity is the authenticated caller as supplied by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

func (i Identity) IsCustomer() bool {
	return i.Role == models.RoleCustomer
}

// OwnsEmail reports whether the caller is the applicant/payer with the given email.
func (i Identity) OwnsEmail(email string) bool {
	return i.Email != "" && strings.EqualFold(i.Email, email)
}

type Capability string

const (
	CapReviewApplications Capability = "review_applications"
	CapViewAll            Capability = "view_all"
	CapViewRevenue        Capability = "view_revenue"
	CapReportPayments     Capability = "report_payments"
)

// Authorizer decides capabilities; the service never verifies credentials itself.
type Authorizer interface {
	Can(identity Identity, capability Capability) bool
}

// RoleAuthorizer grants capabilities from a static role table.
type RoleAuthorizer struct {
	grants map[models.Role]map[Capability]bool
}

func NewRoleAuthorizer() *RoleAuthorizer {
	staff := map[Capability]bool{
		CapReviewApplications: true,
		CapViewAll:            true,
		CapReportPayments:     true,
	}
	admin := map[Capability]bool{
		CapReviewApplications: true,
		CapViewAll:            true,
		CapReportPayments:     true,
		CapViewRevenue:        true,
	}

	return &RoleAuthorizer{
		grants: map[models.Role]map[Capability]bool{
			models.RoleAgent: staff,
			models.RoleAdmin: admin,
		},
	}
}

func (a *RoleAuthorizer) Can(identity Identity, capability Capability) bool {
	return a.grants[identity.Role][capability]
}
