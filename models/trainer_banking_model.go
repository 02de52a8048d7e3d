package models

import (
	"time"
)

// TrainerBanking is keyed by the stable trainer id resolved from the
// storefront customer id, falling back to the normalized email.
type TrainerBanking struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	TrainerID     string    `gorm:"size:128;not null;uniqueIndex" json:"trainer_id"`
	Email         string    `gorm:"size:255" json:"email"`
	PayoutName    *string   `gorm:"size:255" json:"payout_name"`
	PayoutCountry *string   `gorm:"size:2" json:"payout_country"`
	PayoutIBAN    *string   `gorm:"size:64" json:"-"`
	PayoutBIC     *string   `gorm:"size:16" json:"payout_bic"`
	AutoPayout    bool      `gorm:"default:false" json:"auto_payout"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

func (b *TrainerBanking) HasBanking() bool {
	return b.PayoutName != nil && *b.PayoutName != "" &&
		b.PayoutCountry != nil && *b.PayoutCountry != "" &&
		b.PayoutIBAN != nil && *b.PayoutIBAN != ""
}
