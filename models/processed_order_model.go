package models

import (
	"time"
)

// ProcessedOrderLine records which order line items have already been
// credited, so at-least-once webhook delivery credits a trainer exactly once.
type ProcessedOrderLine struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	OrderID    string    `gorm:"size:64;not null;uniqueIndex:idx_order_line" json:"order_id"`
	LineItemID string    `gorm:"size:64;not null;uniqueIndex:idx_order_line" json:"line_item_id"`
	TrainerID  string    `gorm:"size:128;not null;index" json:"trainer_id"`
	CreatedAt  time.Time `json:"created_at"`
}
