package models

import (
	"time"
)

// Listing statuses. A listing leaves "active" only through Sync observing the
// marketplace state; automation rules never flip the status themselves.
const (
	ListingStatusActive = "active"
	ListingStatusEnded  = "ended"
)

// Listing is the local mirror of one marketplace listing. ItemID is the
// marketplace identifier; StartTime is the marketplace creation time and the
// basis for staleness. Relisting resets StartTime, so the age restarts with
// it. Rows are never deleted, only marked ended.
type Listing struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	ItemID       string     `gorm:"column:item_id;uniqueIndex;not null" json:"item_id"`
	Title        string     `gorm:"column:title;not null" json:"title"`
	SKU          string     `gorm:"column:sku" json:"sku"`
	Price        float64    `gorm:"column:price;type:decimal(18,2)" json:"price"`
	Quantity     int        `gorm:"column:quantity;not null;default:0" json:"quantity"`
	QuantitySold int        `gorm:"column:quantity_sold;not null;default:0" json:"quantity_sold"`
	ListingType  string     `gorm:"column:listing_type" json:"listing_type"`
	StartTime    time.Time  `gorm:"column:start_time;not null" json:"start_time"`
	EndTime      *time.Time `gorm:"column:end_time" json:"end_time"`
	ViewCount    int        `gorm:"column:view_count;not null;default:0" json:"view_count"`
	WatchCount   int        `gorm:"column:watch_count;not null;default:0" json:"watch_count"`
	Condition    string     `gorm:"column:condition" json:"condition"`
	GalleryURL   string     `gorm:"column:gallery_url" json:"gallery_url"`
	Status       string     `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at" json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// AgeAt reports how long the listing has been live as of now, measured from
// StartTime.
func (l *Listing) AgeAt(now time.Time) time.Duration {
	return now.Sub(l.StartTime)
}
