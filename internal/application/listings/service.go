package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sellerpilot-backend/internal/models"

	"gorm.io/gorm"
)

// ErrUnknownStatus is returned for a status filter the read model does not
// know. Handlers map it to 400.
var ErrUnknownStatus = errors.New("unknown status filter")

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// Service is the dashboard read model over the listings table. All writes go
// through the automation engine; this service only filters and pages.
type Service struct {
	DB       *gorm.DB
	StaleAge time.Duration
	Now      func() time.Time
}

// Page is one page of listings plus the total row count for the filter.
type Page struct {
	Items   []models.Listing `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns listings for the dashboard. Status filters: "active", "ended",
// "stale" (active and older than the stale threshold) or "all"/empty.
// Stale listings come back oldest first; everything else most recently
// updated first.
func (s *Service) List(ctx context.Context, status string, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q := s.DB.WithContext(ctx).Model(&models.Listing{})
	order := "updated_at DESC"
	switch status {
	case "", "all":
	case models.ListingStatusActive, models.ListingStatusEnded:
		q = q.Where("status = ?", status)
	case "stale":
		cutoff := s.now().Add(-s.StaleAge)
		q = q.Where("status = ? AND start_time <= ?", models.ListingStatusActive, cutoff)
		order = "start_time ASC"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	var items []models.Listing
	if err := q.Order(order).Limit(perPage).Offset((page - 1) * perPage).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}
