package marketplace

import (
	"context"
	"time"
)

// ListingSnapshot is one active listing as the marketplace reports it.
type ListingSnapshot struct {
	ItemID       string     `json:"item_id"`
	Title        string     `json:"title"`
	SKU          string     `json:"sku"`
	Price        float64    `json:"price"`
	Quantity     int        `json:"quantity"`
	QuantitySold int        `json:"quantity_sold"`
	ListingType  string     `json:"listing_type"`
	Views        int        `json:"view_count"`
	Watchers     int        `json:"watch_count"`
	Condition    string     `json:"condition"`
	GalleryURL   string     `json:"gallery_url"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
}

// SaleSnapshot is one completed sale as the marketplace reports it.
type SaleSnapshot struct {
	SaleID           string     `json:"sale_id"`
	ItemID           string     `json:"item_id"`
	Title            string     `json:"title"`
	BuyerID          string     `json:"buyer_id"`
	BuyerEmail       string     `json:"buyer_email"`
	SalePrice        float64    `json:"sale_price"`
	Quantity         int        `json:"quantity"`
	SoldAt           time.Time  `json:"sold_at"`
	PaidAt           *time.Time `json:"paid_at"`
	ShippedAt        *time.Time `json:"shipped_at"`
	FeedbackReceived bool       `json:"feedback_received"`
}

// RelistResult is the marketplace's answer to a relist call. NewItemID may
// equal the original id when the marketplace relists in place.
type RelistResult struct {
	NewItemID string `json:"new_item_id"`
}

// Client abstracts the outbound trading API. Every call can return a
// *TransportError (no definitive answer) or a *RejectedError (definitive
// refusal); callers pick their handling by errors.As, not by string matching.
type Client interface {
	FetchActiveListings(ctx context.Context) ([]ListingSnapshot, error)
	FetchSales(ctx context.Context, since time.Time) ([]SaleSnapshot, error)
	RelistItem(ctx context.Context, itemID string) (*RelistResult, error)
	SendOffer(ctx context.Context, itemID string, offerPrice float64, message string) error
	RequestFeedback(ctx context.Context, itemID, saleID, buyerID string) error
}
