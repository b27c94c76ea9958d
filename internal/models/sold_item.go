package models

import (
	"time"
)

// SoldItem is one completed sale pulled from the marketplace. SaleID is the
// marketplace transaction id and deduplicates repeated sync windows.
// FeedbackRequested flips false to true after a request goes out and is never
// cleared; the flag is the single gate against duplicate requests.
type SoldItem struct {
	ID                  uint       `gorm:"column:id;primaryKey" json:"id"`
	SaleID              string     `gorm:"column:sale_id;uniqueIndex;not null" json:"sale_id"`
	ItemID              string     `gorm:"column:item_id;index;not null" json:"item_id"`
	Title               string     `gorm:"column:title" json:"title"`
	BuyerID             string     `gorm:"column:buyer_id;index;not null" json:"buyer_id"`
	BuyerEmail          string     `gorm:"column:buyer_email" json:"buyer_email,omitempty"`
	SalePrice           float64    `gorm:"column:sale_price;type:decimal(18,2)" json:"sale_price"`
	Quantity            int        `gorm:"column:quantity;not null;default:1" json:"quantity"`
	SoldAt              time.Time  `gorm:"column:sold_at;index;not null" json:"sold_at"`
	PaidAt              *time.Time `gorm:"column:paid_at" json:"paid_at"`
	ShippedAt           *time.Time `gorm:"column:shipped_at" json:"shipped_at"`
	FeedbackRequested   bool       `gorm:"column:feedback_requested;not null;default:false" json:"feedback_requested"`
	FeedbackRequestedAt *time.Time `gorm:"column:feedback_requested_at" json:"feedback_requested_at"`
	FeedbackReceived    bool       `gorm:"column:feedback_received;not null;default:false" json:"feedback_received"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (SoldItem) TableName() string {
	return "sold_items"
}
