package automation

import (
	"context"
	"fmt"

	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"gorm.io/gorm"
)

// runSync pulls the full active listing set from the marketplace and
// reconciles the local mirror in one transaction. A transport failure or any
// store failure aborts the whole cycle with nothing committed; re-running
// with identical remote data changes no listing fields.
func (e *Engine) runSync(ctx context.Context) (*Report, error) {
	rep := newReport(models.RuleSync)

	snapshots, err := e.Client.FetchActiveListings(ctx)
	if err != nil {
		return rep, fmt.Errorf("fetch active listings: %w", err)
	}
	rep.Considered = len(snapshots)

	now := e.now()
	var created, updated, ended int

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(snapshots))
		for _, snap := range snapshots {
			if snap.ItemID == "" {
				continue
			}
			seen[snap.ItemID] = true

			var listing models.Listing
			err := tx.Where("item_id = ?", snap.ItemID).First(&listing).Error
			if err == gorm.ErrRecordNotFound {
				listing = models.Listing{ItemID: snap.ItemID, StartTime: now}
				applySnapshot(&listing, snap)
				listing.LastSyncedAt = &now
				if err := tx.Create(&listing).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if err != nil {
				return err
			}

			changed := applySnapshot(&listing, snap)
			listing.LastSyncedAt = &now
			if err := tx.Save(&listing).Error; err != nil {
				return err
			}
			if changed {
				updated++
			}
		}

		// Local actives absent from the remote set are soft-archived.
		var actives []models.Listing
		if err := tx.Where("status = ?", models.ListingStatusActive).Find(&actives).Error; err != nil {
			return err
		}
		for i := range actives {
			if seen[actives[i].ItemID] {
				continue
			}
			actives[i].Status = models.ListingStatusEnded
			if actives[i].EndTime == nil {
				actives[i].EndTime = &now
			}
			if err := tx.Save(&actives[i]).Error; err != nil {
				return err
			}
			ended++
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("reconcile listings: %w", err)
	}

	rep.ActedOn = created + updated + ended
	rep.set("total", len(snapshots))
	rep.set("new", created)
	rep.set("updated", updated)
	rep.set("ended", ended)
	return rep, nil
}

// applySnapshot copies the remote fields onto the local row and reports
// whether anything other than LastSyncedAt changed. StartTime is taken from
// the snapshot only when the marketplace provides one; a relist resets it
// locally and the next snapshot confirms the reset.
func applySnapshot(l *models.Listing, snap marketplace.ListingSnapshot) bool {
	changed := l.Title != snap.Title ||
		l.SKU != snap.SKU ||
		l.Price != snap.Price ||
		l.Quantity != snap.Quantity ||
		l.QuantitySold != snap.QuantitySold ||
		l.ListingType != snap.ListingType ||
		l.ViewCount != snap.Views ||
		l.WatchCount != snap.Watchers ||
		l.Condition != snap.Condition ||
		l.GalleryURL != snap.GalleryURL ||
		l.Status != models.ListingStatusActive

	if !snap.StartTime.IsZero() && !l.StartTime.Equal(snap.StartTime) {
		l.StartTime = snap.StartTime
		changed = true
	}
	if snap.EndTime != nil && (l.EndTime == nil || !l.EndTime.Equal(*snap.EndTime)) {
		l.EndTime = snap.EndTime
		changed = true
	}

	l.Title = snap.Title
	l.SKU = snap.SKU
	l.Price = snap.Price
	l.Quantity = snap.Quantity
	l.QuantitySold = snap.QuantitySold
	l.ListingType = snap.ListingType
	l.ViewCount = snap.Views
	l.WatchCount = snap.Watchers
	l.Condition = snap.Condition
	l.GalleryURL = snap.GalleryURL
	l.Status = models.ListingStatusActive
	return changed
}
