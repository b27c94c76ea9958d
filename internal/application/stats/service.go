package stats

import (
	"context"
	"encoding/json"
	"time"

	"sellerpilot-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const cacheKey = "stats:overview"

// Overview is the dashboard read model: storefront counts plus today's
// automation activity.
type Overview struct {
	ActiveListings  int64     `json:"active_listings"`
	EndedListings   int64     `json:"ended_listings"`
	StaleListings   int64     `json:"stale_listings"`
	TotalViews      int64     `json:"total_views"`
	TotalWatchers   int64     `json:"total_watchers"`
	TotalSold       int64     `json:"total_sold"`
	PendingFeedback int64     `json:"pending_feedback"`
	RelistsToday    int64     `json:"relists_today"`
	OffersToday     int64     `json:"offers_today"`
	FeedbackToday   int64     `json:"feedback_requests_today"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Service computes the overview from the state store, caching the result in
// redis for a short TTL so a busy dashboard does not hammer the store.
type Service struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
	StaleAge time.Duration

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Overview returns the cached read model when fresh, otherwise recomputes
// with the store queries fanned out concurrently.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached Overview
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	staleCutoff := now.Add(-s.StaleAge)
	out := &Overview{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.Listing{}).
			Where("status = ?", models.ListingStatusActive).
			Count(&out.ActiveListings).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.Listing{}).
			Where("status = ?", models.ListingStatusEnded).
			Count(&out.EndedListings).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.Listing{}).
			Where("status = ? AND start_time <= ?", models.ListingStatusActive, staleCutoff).
			Count(&out.StaleListings).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.Listing{}).
			Where("status = ?", models.ListingStatusActive).
			Select("COALESCE(SUM(view_count), 0)").
			Scan(&out.TotalViews).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.Listing{}).
			Where("status = ?", models.ListingStatusActive).
			Select("COALESCE(SUM(watch_count), 0)").
			Scan(&out.TotalWatchers).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.SoldItem{}).
			Count(&out.TotalSold).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.SoldItem{}).
			Where("feedback_requested = ? AND feedback_received = ?", false, false).
			Count(&out.PendingFeedback).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.RelistAction{}).
			Where("outcome = ? AND relisted_at >= ?", models.RelistOutcomeSuccess, startOfDay).
			Count(&out.RelistsToday).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.OfferRecord{}).
			Where("outcome = ? AND sent_at >= ?", models.OfferOutcomeSuccess, startOfDay).
			Count(&out.OffersToday).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.SoldItem{}).
			Where("feedback_requested_at >= ?", startOfDay).
			Count(&out.FeedbackToday).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.Redis != nil && s.CacheTTL > 0 {
		if raw, err := json.Marshal(out); err == nil {
			s.Redis.Set(ctx, cacheKey, raw, s.CacheTTL)
		}
	}
	return out, nil
}

// Invalidate drops the cached overview so the next read recomputes. Called
// after manual rule triggers so the dashboard reflects them immediately.
func (s *Service) Invalidate(ctx context.Context) {
	if s.Redis != nil {
		s.Redis.Del(ctx, cacheKey)
	}
}
