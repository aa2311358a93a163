// internal/models/application.go
package models

import (
	"time"

	"github.com/lib/pq"
)

type Application struct {
	BaseModel
	FullName            string            `json:"full_name" gorm:"size:255;not null"`
	Email               string            `json:"email" gorm:"size:255;not null;index"`
	Address             string            `json:"address" gorm:"type:text;not null"`
	NationalID          string            `json:"national_id" gorm:"size:64;not null"`
	NomineeName         string            `json:"nominee_name" gorm:"size:255;not null"`
	NomineeRelationship string            `json:"nominee_relationship" gorm:"size:100;not null"`
	HealthConditions    pq.StringArray    `json:"health_conditions" gorm:"type:text[];not null"`
	InsuranceType       InsuranceType     `json:"insurance_type" gorm:"type:varchar(20);not null;index"`
	CoverageAmount      int64             `json:"coverage_amount" gorm:"not null"`
	PaymentTerm         PaymentTerm       `json:"payment_term" gorm:"type:varchar(20);not null"`
	Status              ApplicationStatus `json:"status" gorm:"type:varchar(20);default:'pending';not null;index"`
	ApplicationDate     time.Time         `json:"application_date" gorm:"not null;<-:create"`
	ReviewedBy          string            `json:"reviewed_by,omitempty" gorm:"size:255"`
	ReviewedAt          *time.Time        `json:"reviewed_at"`
	ReviewNote          string            `json:"review_note,omitempty" gorm:"type:text"`
	PaidAt              *time.Time        `json:"paid_at"`
}

// Review describes a single reviewer decision applied to an application.
type Review struct {
	By   string
	At   time.Time
	Note string
}

// Clone returns a deep copy safe to hand across goroutines.
func (a *Application) Clone() *Application {
	out := *a
	out.HealthConditions = append(pq.StringArray(nil), a.HealthConditions...)
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		out.ReviewedAt = &t
	}
	if a.PaidAt != nil {
		t := *a.PaidAt
		out.PaidAt = &t
	}
	return &out
}

// StatusCount is a row of an applications-by-status aggregate.
type StatusCount struct {
	Status ApplicationStatus `json:"status"`
	Count  int64             `json:"count"`
}
