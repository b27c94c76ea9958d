package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSync_CreatesUpdatesAndEnds(t *testing.T) {
	market := &stubMarket{listings: []marketplace.ListingSnapshot{
		{ItemID: "A", Title: "Item A", Price: 30, Quantity: 2},
		{ItemID: "C", Title: "Item C", Price: 10, Quantity: 1},
	}}
	e, db := setupEngine(t, market)
	seedListing(t, db, models.Listing{ItemID: "A", Title: "Item A", Price: 25, Quantity: 2})
	seedListing(t, db, models.Listing{ItemID: "B", Title: "Item B", Price: 5})

	rep, err := e.Run(context.Background(), models.RuleSync, models.RunTriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Considered)
	assert.Equal(t, 3, rep.ActedOn)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, models.RunStatusSuccess, rep.Status())
	assert.Equal(t, 1, rep.Detail["new"])
	assert.Equal(t, 1, rep.Detail["updated"])
	assert.Equal(t, 1, rep.Detail["ended"])

	var a models.Listing
	require.NoError(t, db.Where("item_id = ?", "A").First(&a).Error)
	assert.Equal(t, 30.0, a.Price)
	assert.NotNil(t, a.LastSyncedAt)

	// B vanished from the remote set: soft-archived, never deleted.
	var b models.Listing
	require.NoError(t, db.Where("item_id = ?", "B").First(&b).Error)
	assert.Equal(t, models.ListingStatusEnded, b.Status)
	require.NotNil(t, b.EndTime)

	var c models.Listing
	require.NoError(t, db.Where("item_id = ?", "C").First(&c).Error)
	assert.Equal(t, models.ListingStatusActive, c.Status)
	assert.WithinDuration(t, testNow, c.StartTime, time.Second)

	run := lastRun(t, db, models.RuleSync)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, 2, run.Considered)
	assert.Equal(t, 3, run.ActedOn)
	assert.Contains(t, string(run.Detail), `"new":1`)
}

func TestRunSync_SecondRunChangesNothing(t *testing.T) {
	market := &stubMarket{listings: []marketplace.ListingSnapshot{
		{ItemID: "A", Title: "Item A", Price: 30, Quantity: 2},
	}}
	e, db := setupEngine(t, market)
	seedListing(t, db, models.Listing{ItemID: "E", Status: models.ListingStatusEnded})

	_, err := e.Run(context.Background(), models.RuleSync, models.RunTriggerSchedule)
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), models.RuleSync, models.RunTriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Considered)
	assert.Equal(t, 0, rep.ActedOn)
	assert.Equal(t, 0, rep.Detail["new"])
	assert.Equal(t, 0, rep.Detail["updated"])
	assert.Equal(t, 0, rep.Detail["ended"])

	var count int64
	require.NoError(t, db.Model(&models.Listing{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// The already-ended listing stays as it was.
	var e2 models.Listing
	require.NoError(t, db.Where("item_id = ?", "E").First(&e2).Error)
	assert.Equal(t, models.ListingStatusEnded, e2.Status)
	assert.Nil(t, e2.EndTime)
}

func TestRunSync_TransportFailureLeavesStoreUntouched(t *testing.T) {
	market := &stubMarket{
		fetchListingsErr: &marketplace.TransportError{Op: "fetch listings", Err: errors.New("connect: timeout")},
	}
	e, db := setupEngine(t, market)
	seedListing(t, db, models.Listing{ItemID: "A", Price: 25})

	_, err := e.Run(context.Background(), models.RuleSync, models.RunTriggerSchedule)
	require.Error(t, err)
	assert.True(t, marketplace.IsTransport(err))

	var a models.Listing
	require.NoError(t, db.Where("item_id = ?", "A").First(&a).Error)
	assert.Equal(t, 25.0, a.Price)
	assert.Equal(t, models.ListingStatusActive, a.Status)
	assert.Nil(t, a.LastSyncedAt)

	run := lastRun(t, db, models.RuleSync)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "timeout")
}

func TestApplySnapshot_ReportsChanges(t *testing.T) {
	l := models.Listing{ItemID: "A", Title: "Old", Price: 10, Status: models.ListingStatusActive}
	snap := marketplace.ListingSnapshot{ItemID: "A", Title: "New", Price: 10}

	assert.True(t, applySnapshot(&l, snap))
	assert.Equal(t, "New", l.Title)

	// Same snapshot again: nothing to report.
	assert.False(t, applySnapshot(&l, snap))
}
