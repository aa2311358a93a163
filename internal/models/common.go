// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the identity client-side so callers know it before the insert commits.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// TargetStatus maps a decision to the terminal status it produces.
func (d ReviewDecision) TargetStatus() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return ApplicationStatusApproved, true
	case DecisionReject:
		return ApplicationStatusRejected, true
	}
	return "", false
}

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

type InsuranceType string

const (
	InsuranceTypeLife   InsuranceType = "life"
	InsuranceTypeHealth InsuranceType = "health"
	InsuranceTypeAuto   InsuranceType = "auto"
	InsuranceTypeHome   InsuranceType = "home"
	InsuranceTypeTravel InsuranceType = "travel"
)

type PaymentTerm string

const (
	PaymentTermMonthly    PaymentTerm = "monthly"
	PaymentTermQuarterly  PaymentTerm = "quarterly"
	PaymentTermSemiAnnual PaymentTerm = "semi_annual"
	PaymentTermAnnual     PaymentTerm = "annual"
)

// Health disclosure values. HealthConditionNone must appear alone.
const (
	HealthConditionDiabetes      = "diabetes"
	HealthConditionHypertension  = "hypertension"
	HealthConditionHeartDisease  = "heart_disease"
	HealthConditionAsthma        = "asthma"
	HealthConditionCancer        = "cancer"
	HealthConditionKidneyDisease = "kidney_disease"
	HealthConditionLiverDisease  = "liver_disease"
	HealthConditionHIV           = "hiv"
	HealthConditionEpilepsy      = "epilepsy"
	HealthConditionNone          = "none"
)

var healthConditions = map[string]bool{
	HealthConditionDiabetes:      true,
	HealthConditionHypertension:  true,
	HealthConditionHeartDisease:  true,
	HealthConditionAsthma:        true,
	HealthConditionCancer:        true,
	HealthConditionKidneyDisease: true,
	HealthConditionLiverDisease:  true,
	HealthConditionHIV:           true,
	HealthConditionEpilepsy:      true,
	HealthConditionNone:          true,
}

func IsHealthCondition(value string) bool {
	return healthConditions[value]
}
