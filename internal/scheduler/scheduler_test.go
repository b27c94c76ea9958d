package scheduler

import (
	"context"
	"testing"
	"time"

	"sellerpilot-backend/internal/application/automation"
	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/infrastructure/database"
	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeMarket answers every call with empty data.
type fakeMarket struct{}

func (fakeMarket) FetchActiveListings(ctx context.Context) ([]marketplace.ListingSnapshot, error) {
	return nil, nil
}

func (fakeMarket) FetchSales(ctx context.Context, since time.Time) ([]marketplace.SaleSnapshot, error) {
	return nil, nil
}

func (fakeMarket) RelistItem(ctx context.Context, itemID string) (*marketplace.RelistResult, error) {
	return &marketplace.RelistResult{NewItemID: itemID}, nil
}

func (fakeMarket) SendOffer(ctx context.Context, itemID string, offerPrice float64, message string) error {
	return nil
}

func (fakeMarket) RequestFeedback(ctx context.Context, itemID, saleID, buyerID string) error {
	return nil
}

// blockingMarket parks the sync pull until release is closed, keeping the
// rule in the running state for as long as the test needs.
type blockingMarket struct {
	fakeMarket
	started chan struct{}
	release chan struct{}
}

func (b *blockingMarket) FetchActiveListings(ctx context.Context) ([]marketplace.ListingSnapshot, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func newBlockingMarket() *blockingMarket {
	return &blockingMarket{started: make(chan struct{}), release: make(chan struct{})}
}

func setupScheduler(t *testing.T, market marketplace.Client) (*Scheduler, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	engine := automation.New(db, market, config.AutomationConfig{
		StaleListingDays:    30,
		RelistCooldownDays:  7,
		MinViewsForOffer:    5,
		OfferDiscountPct:    10,
		OfferCooldownDays:   14,
		FeedbackRequestDays: 3,
		SalesLookbackDays:   30,
	})
	s, err := New(engine, config.ScheduleConfig{
		Sync:     "@every 1h",
		Stale:    "0 2 * * *",
		Offer:    "0 10 * * *",
		Feedback: "0 15 * * *",
	})
	require.NoError(t, err)
	return s, db
}

func jobFor(t *testing.T, s *Scheduler, rule string) JobStatus {
	for _, j := range s.Jobs() {
		if j.Rule == rule {
			return j
		}
	}
	t.Fatalf("no job registered for rule %s", rule)
	return JobStatus{}
}

func TestNew_RejectsBadExpression(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	engine := automation.New(db, fakeMarket{}, config.AutomationConfig{})

	_, err = New(engine, config.ScheduleConfig{
		Sync:     "not a schedule",
		Stale:    "0 2 * * *",
		Offer:    "0 10 * * *",
		Feedback: "0 15 * * *",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.RuleSync)
}

func TestJobs_ReportsAllFourRules(t *testing.T) {
	s, _ := setupScheduler(t, fakeMarket{})

	jobs := s.Jobs()
	require.Len(t, jobs, 4)

	sync := jobFor(t, s, models.RuleSync)
	assert.Equal(t, "@every 1h", sync.Schedule)
	assert.False(t, sync.Running)
	assert.Nil(t, sync.LastRun)

	stale := jobFor(t, s, models.RuleStale)
	assert.Equal(t, "0 2 * * *", stale.Schedule)
}

func TestTriggerNow_UnknownRule(t *testing.T) {
	s, _ := setupScheduler(t, fakeMarket{})

	_, err := s.TriggerNow(context.Background(), "defrag")
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestTriggerNow_RunsSynchronously(t *testing.T) {
	s, db := setupScheduler(t, fakeMarket{})

	rep, err := s.TriggerNow(context.Background(), models.RuleSync)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, rep.Status())

	// The audit row is already committed when the call returns.
	var run models.AutomationRun
	require.NoError(t, db.Where("rule = ?", models.RuleSync).First(&run).Error)
	assert.Equal(t, models.RunTriggerManual, run.Trigger)

	sync := jobFor(t, s, models.RuleSync)
	assert.False(t, sync.Running)
	assert.NotNil(t, sync.LastRun)
}

func TestTriggerNow_OverlappingTriggerIsDropped(t *testing.T) {
	blocker := newBlockingMarket()
	s, db := setupScheduler(t, blocker)

	done := make(chan error, 1)
	go func() {
		_, err := s.TriggerNow(context.Background(), models.RuleSync)
		done <- err
	}()
	<-blocker.started

	assert.True(t, jobFor(t, s, models.RuleSync).Running)

	// Same rule, still running: dropped, not queued.
	_, err := s.TriggerNow(context.Background(), models.RuleSync)
	assert.ErrorIs(t, err, ErrRuleBusy)

	close(blocker.release)
	require.NoError(t, <-done)

	var skipped models.AutomationRun
	require.NoError(t, db.Where("rule = ? AND status = ?", models.RuleSync, models.RunStatusSkipped).First(&skipped).Error)
	assert.Equal(t, models.RunTriggerManual, skipped.Trigger)
	assert.Equal(t, "previous run still in progress", skipped.Error)

	assert.False(t, jobFor(t, s, models.RuleSync).Running)
}

func TestTriggerNow_RulesRunIndependently(t *testing.T) {
	blocker := newBlockingMarket()
	s, _ := setupScheduler(t, blocker)

	done := make(chan error, 1)
	go func() {
		_, err := s.TriggerNow(context.Background(), models.RuleSync)
		done <- err
	}()
	<-blocker.started

	// Sync is mid-run; the offer rule is not affected.
	rep, err := s.TriggerNow(context.Background(), models.RuleOffer)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, rep.Status())

	close(blocker.release)
	require.NoError(t, <-done)
}

func TestStartStop(t *testing.T) {
	s, _ := setupScheduler(t, fakeMarket{})
	s.Start()

	require.Eventually(t, func() bool {
		for _, j := range s.Jobs() {
			if j.NextRun == nil {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)

	s.Stop()
}
