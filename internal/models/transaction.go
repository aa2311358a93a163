// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one payment attempt against an application. ProcessorIntentID is the
// processor-side handle used for reconciliation; it never doubles as the primary key.
type Transaction struct {
	BaseModel
	ProcessorIntentID string            `json:"processor_intent_id" gorm:"size:255;not null;uniqueIndex"`
	ApplicationID     uuid.UUID         `json:"application_id" gorm:"type:uuid;not null;index"`
	PayerEmail        string            `json:"payer_email" gorm:"size:255;not null;index"`
	Amount            int64             `json:"amount" gorm:"not null"`
	Currency          string            `json:"currency" gorm:"size:3;not null"`
	Status            TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';not null;index"`
	FailureReason     string            `json:"failure_reason,omitempty" gorm:"type:text"`
	ProcessedAt       *time.Time        `json:"processed_at"`
}

func (t *Transaction) Clone() *Transaction {
	out := *t
	if t.ProcessedAt != nil {
		p := *t.ProcessedAt
		out.ProcessedAt = &p
	}
	return &out
}

// RevenueRow is a per-currency aggregate of successful transactions.
type RevenueRow struct {
	Currency string `json:"currency"`
	Total    int64  `json:"total"`
	Count    int64  `json:"count"`
}
