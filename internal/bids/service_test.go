package bids

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/events"
	"bazaar-backend/internal/pkg/apperrors"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type eventRecorder struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (r *eventRecorder) record(ctx context.Context, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func (r *eventRecorder) all() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}{}, r.payloads...)
}

func setupBidsTest(t *testing.T) (*Service, *gorm.DB, *eventRecorder) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// A shared :memory: DB needs a single connection; this also serializes
	// the racing-withdrawal test the way a real store would.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Bid{}, &domain.ListingEvent{}))

	broker := events.NewInProc()
	rec := &eventRecorder{}
	broker.Subscribe(events.TopicBidPlaced, rec.record)
	broker.Subscribe(events.TopicBidWithdrawn, rec.record)

	return &Service{DB: db, Broker: broker}, db, rec
}

// Non-positive or non-finite amounts are rejected and never create a record.
func TestPlaceBid_InvalidAmount(t *testing.T) {
	svc, db, rec := setupBidsTest(t)
	listingID, bidderID := uuid.New(), uuid.New()

	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.PlaceBid(context.Background(), bidderID, listingID, amount)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}

	var count int64
	db.Model(&domain.Bid{}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, rec.all())
}

// A valid bid is inserted Active, publishes bid.placed and records an audit row.
func TestPlaceBid_Success(t *testing.T) {
	svc, db, rec := setupBidsTest(t)
	listingID, bidderID := uuid.New(), uuid.New()

	bid, err := svc.PlaceBid(context.Background(), bidderID, listingID, 150)
	require.NoError(t, err)
	assert.Equal(t, domain.BidActive, bid.Status)
	assert.Equal(t, 150.0, bid.Amount)

	payloads := rec.all()
	require.Len(t, payloads, 1)
	placed, ok := payloads[0].(events.BidPlaced)
	require.True(t, ok)
	assert.Equal(t, bid.BidID, placed.BidID)
	assert.Equal(t, listingID, placed.ListingID)

	var auditCount int64
	db.Model(&domain.ListingEvent{}).Where("listing_id = ? AND event_type = ?", listingID, "BID_PLACED").Count(&auditCount)
	assert.Equal(t, int64(1), auditCount)
}

// Bids are loosely coupled: placing against an unknown listing id succeeds.
func TestPlaceBid_UnknownListingAccepted(t *testing.T) {
	svc, _, _ := setupBidsTest(t)
	_, err := svc.PlaceBid(context.Background(), uuid.New(), uuid.New(), 10)
	assert.NoError(t, err)
}

// After bids of 50, 150, 100 the high is 150; after withdrawing it, 100.
func TestGetCurrentHigh_Ordering(t *testing.T) {
	svc, _, _ := setupBidsTest(t)
	listingID := uuid.New()
	bidder := uuid.New()

	b50, err := svc.PlaceBid(context.Background(), bidder, listingID, 50)
	require.NoError(t, err)
	b150, err := svc.PlaceBid(context.Background(), bidder, listingID, 150)
	require.NoError(t, err)
	b100, err := svc.PlaceBid(context.Background(), bidder, listingID, 100)
	require.NoError(t, err)

	high, err := svc.GetCurrentHigh(context.Background(), listingID)
	require.NoError(t, err)
	require.NotNil(t, high)
	assert.Equal(t, b150.BidID, high.BidID)

	require.NoError(t, svc.WithdrawBid(context.Background(), b150.BidID, bidder))

	high, err = svc.GetCurrentHigh(context.Background(), listingID)
	require.NoError(t, err)
	require.NotNil(t, high)
	assert.Equal(t, b100.BidID, high.BidID)
	_ = b50
}

// Equal amounts tie-break by most recent timestamp.
func TestGetBids_TieBreaksByRecency(t *testing.T) {
	svc, db, _ := setupBidsTest(t)
	listingID := uuid.New()

	older := &domain.Bid{ListingID: listingID, BidderID: uuid.New(), Amount: 100, Status: domain.BidActive,
		CreatedAt: time.Now().Add(-time.Hour)}
	newer := &domain.Bid{ListingID: listingID, BidderID: uuid.New(), Amount: 100, Status: domain.BidActive,
		CreatedAt: time.Now()}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)

	bids, err := svc.GetBids(context.Background(), listingID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, newer.BidID, bids[0].BidID)
}

// Withdrawn bids never show up in the ledger view.
func TestGetBids_ExcludesWithdrawn(t *testing.T) {
	svc, _, _ := setupBidsTest(t)
	listingID, bidder := uuid.New(), uuid.New()

	bid, err := svc.PlaceBid(context.Background(), bidder, listingID, 75)
	require.NoError(t, err)
	require.NoError(t, svc.WithdrawBid(context.Background(), bid.BidID, bidder))

	bids, err := svc.GetBids(context.Background(), listingID)
	require.NoError(t, err)
	assert.Empty(t, bids)

	high, err := svc.GetCurrentHigh(context.Background(), listingID)
	require.NoError(t, err)
	assert.Nil(t, high)
}

// First withdrawal succeeds; the second fails with already-withdrawn and no
// duplicate event is published.
func TestWithdrawBid_Twice(t *testing.T) {
	svc, db, rec := setupBidsTest(t)
	listingID, bidder := uuid.New(), uuid.New()

	bid, err := svc.PlaceBid(context.Background(), bidder, listingID, 60)
	require.NoError(t, err)

	require.NoError(t, svc.WithdrawBid(context.Background(), bid.BidID, bidder))
	err = svc.WithdrawBid(context.Background(), bid.BidID, bidder)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))

	var stored domain.Bid
	require.NoError(t, db.Where("bid_id = ?", bid.BidID).First(&stored).Error)
	assert.Equal(t, domain.BidWithdrawn, stored.Status)

	withdrawnEvents := 0
	for _, p := range rec.all() {
		if _, ok := p.(events.BidWithdrawn); ok {
			withdrawnEvents++
		}
	}
	assert.Equal(t, 1, withdrawnEvents)
}

// Only the original bidder can withdraw.
func TestWithdrawBid_WrongBidder(t *testing.T) {
	svc, db, _ := setupBidsTest(t)
	listingID, bidder := uuid.New(), uuid.New()

	bid, err := svc.PlaceBid(context.Background(), bidder, listingID, 80)
	require.NoError(t, err)

	err = svc.WithdrawBid(context.Background(), bid.BidID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	var stored domain.Bid
	require.NoError(t, db.Where("bid_id = ?", bid.BidID).First(&stored).Error)
	assert.Equal(t, domain.BidActive, stored.Status)
}

// Withdrawing an unknown bid reports not-found, checked before ownership.
func TestWithdrawBid_NotFound(t *testing.T) {
	svc, _, _ := setupBidsTest(t)
	err := svc.WithdrawBid(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

// Two racing withdrawals: exactly one succeeds, the other diagnoses
// already-withdrawn.
func TestWithdrawBid_ConcurrentOnlyOneSucceeds(t *testing.T) {
	svc, _, _ := setupBidsTest(t)
	listingID, bidder := uuid.New(), uuid.New()

	bid, err := svc.PlaceBid(context.Background(), bidder, listingID, 90)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.WithdrawBid(context.Background(), bid.BidID, bidder)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, failed := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsInvalidTransition(err))
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
}
