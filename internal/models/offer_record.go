package models

import (
	"time"
)

// Offer outcomes.
const (
	OfferOutcomeSuccess = "success"
	OfferOutcomeFailed  = "failed"
)

// OfferRecord is one discount-offer attempt for a listing. The offer cooldown
// counts ANY outcome: a rejected or failed attempt still consumed the buyers'
// attention window, so the item waits out the full cooldown before the next
// try.
type OfferRecord struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	ItemID          string    `gorm:"column:item_id;index;not null" json:"item_id"`
	BuyerID         string    `gorm:"column:buyer_id" json:"buyer_id,omitempty"`
	OfferPrice      float64   `gorm:"column:offer_price;type:decimal(18,2);not null" json:"offer_price"`
	OriginalPrice   float64   `gorm:"column:original_price;type:decimal(18,2)" json:"original_price"`
	DiscountPercent float64   `gorm:"column:discount_percent" json:"discount_percent"`
	Message         string    `gorm:"column:message" json:"message,omitempty"`
	Outcome         string    `gorm:"column:outcome;type:varchar(20);not null" json:"outcome"`
	ErrorMessage    string    `gorm:"column:error_message" json:"error_message,omitempty"`
	SentAt          time.Time `gorm:"column:sent_at;index;not null" json:"sent_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func (OfferRecord) TableName() string {
	return "offers_sent"
}
