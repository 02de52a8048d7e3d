package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntryTypeSale     = "sale"
	EntryTypeWithdraw = "withdraw"
	EntryTypePaid     = "paid"

	EntryStatusAvailable = "available"
	EntryStatusRequested = "requested"
	EntryStatusPaid      = "paid"
)

// PayoutsHistory rows are append-only. The single allowed mutation is the
// settlement transition withdraw/requested -> paid/paid, which also stamps
// the date.
type PayoutsHistory struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TrainerID   string    `gorm:"size:128;not null;index" json:"trainer_id"`
	Type        string    `gorm:"size:20;not null" json:"type"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	AmountCents int64     `gorm:"not null" json:"amount"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	Date        time.Time `gorm:"not null" json:"date"`
	Meta        string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"-"`
}
