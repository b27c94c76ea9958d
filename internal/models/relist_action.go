package models

import (
	"time"
)

// Relist outcomes. Only "success" starts a cooldown window; a failed row
// carries the refusal reason in ErrorMessage and leaves the listing eligible
// again next cycle.
const (
	RelistOutcomeSuccess = "success"
	RelistOutcomeFailed  = "failed"
)

// Relist reasons.
const (
	RelistReasonStale  = "stale_listing"
	RelistReasonManual = "manual"
)

// RelistAction is one relist attempt against a listing. Rows are append-only.
// NewItemID records the replacement marketplace id when the marketplace ends
// and recreates the listing; the local listings row keeps the original id
// until the next sync reconciles.
type RelistAction struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	ItemID       string    `gorm:"column:item_id;index;not null" json:"item_id"`
	NewItemID    *string   `gorm:"column:new_item_id;index" json:"new_item_id"`
	Reason       string    `gorm:"column:reason" json:"reason"`
	Outcome      string    `gorm:"column:outcome;type:varchar(20);not null" json:"outcome"`
	ErrorMessage string    `gorm:"column:error_message" json:"error_message,omitempty"`
	RelistedAt   time.Time `gorm:"column:relisted_at;index;not null" json:"relisted_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RelistAction) TableName() string {
	return "relist_history"
}
