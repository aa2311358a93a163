// internal/models/view_counter.go
package models

import "time"

type ViewCounter struct {
	ResourceID string    `json:"resource_id" gorm:"primaryKey;size:128"`
	Count      int64     `json:"count" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at"`
}
