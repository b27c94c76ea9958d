package automation

import (
	"context"
	"fmt"
	"time"

	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runStaleRelist relists active listings older than the staleness threshold,
// oldest first. A successful relist resets the listing's StartTime and starts
// the cooldown window; a rejected one records a failed action and leaves the
// listing eligible next cycle. Entity failures never abort the loop.
func (e *Engine) runStaleRelist(ctx context.Context) (*Report, error) {
	rep := newReport(models.RuleStale)
	now := e.now()
	cutoff := now.Add(-e.Cfg.StaleAge())

	var candidates []models.Listing
	err := e.DB.WithContext(ctx).
		Where("status = ? AND start_time <= ?", models.ListingStatusActive, cutoff).
		Order("start_time ASC").
		Find(&candidates).Error
	if err != nil {
		return rep, fmt.Errorf("load stale candidates: %w", err)
	}
	rep.Considered = len(candidates)

	attempts := 0
	for i := range candidates {
		if e.Cfg.RelistMaxPerRun > 0 && attempts >= e.Cfg.RelistMaxPerRun {
			rep.set("capped", true)
			break
		}

		listing := &candidates[i]
		onCooldown, err := e.relistOnCooldown(ctx, listing.ItemID, now)
		if err != nil {
			rep.Failed++
			rep.count("store_errors")
			log.Error().Err(err).Str("item_id", listing.ItemID).Msg("Relist cooldown check failed")
			continue
		}
		if onCooldown {
			rep.count("skipped_cooldown")
			continue
		}

		attempts++
		action, err := e.relistOne(ctx, listing, models.RelistReasonStale)
		switch {
		case err != nil:
			rep.Failed++
			if marketplace.IsTransport(err) {
				rep.count("transport_errors")
			} else {
				rep.count("store_errors")
			}
			log.Error().Err(err).Str("item_id", listing.ItemID).Msg("Relist attempt failed")
		case action.Outcome == models.RelistOutcomeSuccess:
			rep.ActedOn++
			rep.count("relisted")
		default:
			rep.Failed++
			rep.count("rejected")
		}
	}
	return rep, nil
}

// RelistListing relists one listing on demand. Unlike the scheduled rule it
// ignores the staleness threshold, but the cooldown still applies: the
// no-two-successes-inside-the-window invariant holds for manual relists too.
func (e *Engine) RelistListing(ctx context.Context, itemID string) (*models.RelistAction, error) {
	var listing models.Listing
	err := e.DB.WithContext(ctx).Where("item_id = ?", itemID).First(&listing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}

	onCooldown, err := e.relistOnCooldown(ctx, itemID, e.now())
	if err != nil {
		return nil, fmt.Errorf("check cooldown: %w", err)
	}
	if onCooldown {
		return nil, ErrRelistCooldown
	}
	return e.relistOne(ctx, &listing, models.RelistReasonManual)
}

// relistOne performs one relist attempt and records its outcome. On success
// the StartTime reset and the action row commit in a single transaction; a
// definitive marketplace refusal commits a failed action row only; a
// transport failure writes nothing.
func (e *Engine) relistOne(ctx context.Context, listing *models.Listing, reason string) (*models.RelistAction, error) {
	now := e.now()
	result, err := e.Client.RelistItem(ctx, listing.ItemID)

	if marketplace.IsRejected(err) {
		action := models.RelistAction{
			ItemID:       listing.ItemID,
			Reason:       reason,
			Outcome:      models.RelistOutcomeFailed,
			ErrorMessage: err.Error(),
			RelistedAt:   now,
		}
		if dbErr := e.DB.WithContext(ctx).Create(&action).Error; dbErr != nil {
			return nil, fmt.Errorf("record rejected relist: %w", dbErr)
		}
		return &action, nil
	}
	if err != nil {
		return nil, fmt.Errorf("relist %s: %w", listing.ItemID, err)
	}

	action := models.RelistAction{
		ItemID:     listing.ItemID,
		Reason:     reason,
		Outcome:    models.RelistOutcomeSuccess,
		RelistedAt: now,
	}
	if result != nil && result.NewItemID != "" && result.NewItemID != listing.ItemID {
		action.NewItemID = &result.NewItemID
	}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing.StartTime = now
		if err := tx.Save(listing).Error; err != nil {
			return err
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record relist %s: %w", listing.ItemID, err)
	}

	log.Info().Str("item_id", listing.ItemID).Str("reason", reason).Msg("Listing relisted")
	return &action, nil
}

// relistOnCooldown reports whether the most recent successful relist for the
// item is still inside the cooldown window. Failed attempts start no window.
func (e *Engine) relistOnCooldown(ctx context.Context, itemID string, now time.Time) (bool, error) {
	var last models.RelistAction
	err := e.DB.WithContext(ctx).
		Where("item_id = ? AND outcome = ?", itemID, models.RelistOutcomeSuccess).
		Order("relisted_at DESC").
		First(&last).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Sub(last.RelistedAt) < e.Cfg.RelistCooldown(), nil
}
