package models

import (
	"time"
)

// PayoutsSummary is the materialized running total per trainer. It is only
// ever written inside a ledger transaction, together with a history row, and
// both amounts stay >= 0.
type PayoutsSummary struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	TrainerID      string    `gorm:"size:128;not null;uniqueIndex" json:"trainer_id"`
	AvailableCents int64     `gorm:"not null;default:0" json:"available"`
	PendingCents   int64     `gorm:"not null;default:0" json:"pending"`
	Currency       string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}
