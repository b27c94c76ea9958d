package automation

import (
	"context"
	"fmt"
	"math"
	"time"

	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runOffer proposes a discount to watchers of listings that draw interest but
// no sale. A listing with any recorded sale is never selected, whatever its
// watcher count. The cooldown window counts offers of ANY outcome.
func (e *Engine) runOffer(ctx context.Context) (*Report, error) {
	rep := newReport(models.RuleOffer)
	now := e.now()

	var candidates []models.Listing
	err := e.DB.WithContext(ctx).
		Where("status = ? AND watch_count >= ? AND quantity_sold = 0",
			models.ListingStatusActive, e.Cfg.MinViewsForOffer).
		Order("start_time ASC").
		Find(&candidates).Error
	if err != nil {
		return rep, fmt.Errorf("load offer candidates: %w", err)
	}
	rep.Considered = len(candidates)

	for i := range candidates {
		listing := &candidates[i]

		sold, err := e.hasRecordedSale(ctx, listing.ItemID)
		if err != nil {
			rep.Failed++
			rep.count("store_errors")
			log.Error().Err(err).Str("item_id", listing.ItemID).Msg("Offer sale check failed")
			continue
		}
		if sold {
			rep.count("skipped_sold")
			continue
		}

		onCooldown, err := e.offerOnCooldown(ctx, listing.ItemID, now)
		if err != nil {
			rep.Failed++
			rep.count("store_errors")
			log.Error().Err(err).Str("item_id", listing.ItemID).Msg("Offer cooldown check failed")
			continue
		}
		if onCooldown {
			rep.count("skipped_cooldown")
			continue
		}

		e.offerOne(ctx, listing, rep, now)
	}
	return rep, nil
}

// offerOne sends one discount offer and records it. Success and definitive
// refusals both get an OfferRecord (the refusal is an expected outcome, not
// an alarm); a transport failure writes nothing and the listing is eligible
// again next cycle.
func (e *Engine) offerOne(ctx context.Context, listing *models.Listing, rep *Report, now time.Time) {
	discount := e.Cfg.OfferDiscountPct
	offerPrice := math.Round(listing.Price*(1-discount/100)*100) / 100
	message := fmt.Sprintf("Special %g%% off!", discount)

	err := e.Client.SendOffer(ctx, listing.ItemID, offerPrice, message)
	if err != nil && !marketplace.IsRejected(err) {
		rep.Failed++
		rep.count("transport_errors")
		log.Error().Err(err).Str("item_id", listing.ItemID).Msg("Offer attempt failed")
		return
	}

	record := models.OfferRecord{
		ItemID:          listing.ItemID,
		OfferPrice:      offerPrice,
		OriginalPrice:   listing.Price,
		DiscountPercent: discount,
		Message:         message,
		Outcome:         models.OfferOutcomeSuccess,
		SentAt:          now,
	}
	if err != nil {
		record.Outcome = models.OfferOutcomeFailed
		record.ErrorMessage = err.Error()
	}
	if dbErr := e.DB.WithContext(ctx).Create(&record).Error; dbErr != nil {
		rep.Failed++
		rep.count("store_errors")
		log.Error().Err(dbErr).Str("item_id", listing.ItemID).Msg("Failed to record offer")
		return
	}

	if record.Outcome == models.OfferOutcomeSuccess {
		rep.ActedOn++
		rep.count("sent")
		log.Info().Str("item_id", listing.ItemID).Float64("offer_price", offerPrice).Msg("Offer sent")
	} else {
		rep.Failed++
		rep.count("rejected")
		log.Warn().Str("item_id", listing.ItemID).Str("reason", record.ErrorMessage).Msg("Offer declined by marketplace")
	}
}

func (e *Engine) hasRecordedSale(ctx context.Context, itemID string) (bool, error) {
	var n int64
	err := e.DB.WithContext(ctx).Model(&models.SoldItem{}).
		Where("item_id = ?", itemID).Count(&n).Error
	return n > 0, err
}

// offerOnCooldown reports whether any offer, successful or not, was sent for
// the item inside the cooldown window.
func (e *Engine) offerOnCooldown(ctx context.Context, itemID string, now time.Time) (bool, error) {
	var last models.OfferRecord
	err := e.DB.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("sent_at DESC").
		First(&last).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Sub(last.SentAt) < e.Cfg.OfferCooldown(), nil
}
