package automation

import (
	"context"
	"fmt"

	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runFeedback keeps the sold-item mirror fresh and requests buyer feedback
// once per sale, after the configured delay. Step 1 upserts recent sales by
// sale id; step 2 sends requests for sales whose flag is still down. A
// transport failure during the pull aborts the run like Sync; request-side
// failures leave the flag down for the next cycle.
func (e *Engine) runFeedback(ctx context.Context) (*Report, error) {
	rep := newReport(models.RuleFeedback)
	now := e.now()

	sales, err := e.Client.FetchSales(ctx, now.AddDate(0, 0, -e.Cfg.SalesLookbackDays))
	if err != nil {
		return rep, fmt.Errorf("fetch recent sales: %w", err)
	}

	var created, updated int
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sale := range sales {
			if sale.SaleID == "" {
				continue
			}
			var item models.SoldItem
			err := tx.Where("sale_id = ?", sale.SaleID).First(&item).Error
			if err == gorm.ErrRecordNotFound {
				item = models.SoldItem{
					SaleID:           sale.SaleID,
					ItemID:           sale.ItemID,
					Title:            sale.Title,
					BuyerID:          sale.BuyerID,
					BuyerEmail:       sale.BuyerEmail,
					SalePrice:        sale.SalePrice,
					Quantity:         sale.Quantity,
					SoldAt:           sale.SoldAt,
					PaidAt:           sale.PaidAt,
					ShippedAt:        sale.ShippedAt,
					FeedbackReceived: sale.FeedbackReceived,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if err != nil {
				return err
			}

			// Re-seeing a sale is a no-op unless the buyer's feedback or
			// fulfilment state moved.
			changed := item.FeedbackReceived != sale.FeedbackReceived
			item.FeedbackReceived = sale.FeedbackReceived
			if sale.PaidAt != nil && item.PaidAt == nil {
				item.PaidAt = sale.PaidAt
				changed = true
			}
			if sale.ShippedAt != nil && item.ShippedAt == nil {
				item.ShippedAt = sale.ShippedAt
				changed = true
			}
			if changed {
				if err := tx.Save(&item).Error; err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("reconcile sold items: %w", err)
	}
	rep.set("sales_total", len(sales))
	rep.set("sales_new", created)
	rep.set("sales_updated", updated)

	// Step 2: request feedback where the flag is down, the buyer has not
	// already left feedback, and the delay has elapsed.
	waitUntil := now.Add(-e.Cfg.FeedbackDelay())
	var ready []models.SoldItem
	err = e.DB.WithContext(ctx).
		Where("feedback_requested = ? AND feedback_received = ? AND sold_at <= ?", false, false, waitUntil).
		Order("sold_at ASC").
		Find(&ready).Error
	if err != nil {
		return rep, fmt.Errorf("load feedback candidates: %w", err)
	}
	rep.Considered = len(ready)

	for i := range ready {
		item := &ready[i]
		err := e.Client.RequestFeedback(ctx, item.ItemID, item.SaleID, item.BuyerID)
		if err != nil {
			rep.Failed++
			if marketplace.IsRejected(err) {
				rep.count("rejected")
				log.Warn().Err(err).Str("sale_id", item.SaleID).Msg("Feedback request declined")
			} else {
				rep.count("transport_errors")
				log.Error().Err(err).Str("sale_id", item.SaleID).Msg("Feedback request failed")
			}
			continue
		}

		requestedAt := e.now()
		item.FeedbackRequested = true
		item.FeedbackRequestedAt = &requestedAt
		if err := e.DB.WithContext(ctx).Save(item).Error; err != nil {
			rep.Failed++
			rep.count("store_errors")
			log.Error().Err(err).Str("sale_id", item.SaleID).Msg("Failed to record feedback request")
			continue
		}
		rep.ActedOn++
		rep.count("requested")
		log.Info().Str("sale_id", item.SaleID).Str("buyer_id", item.BuyerID).Msg("Feedback requested")
	}
	return rep, nil
}
