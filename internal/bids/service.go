// Package bids owns the competitive bidding ledger. Bids reference listings
// by id only; the ledger never reads the listing store, so a bid against an
// unknown or closed listing is accepted (clean-up of such bids is a policy
// for a synchronization layer, deliberately not implemented here).
package bids

import (
	"context"
	"encoding/json"
	"time"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/events"
	"bazaar-backend/internal/pkg/apperrors"
	"bazaar-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Broker events.Broker
}

// PlaceBid inserts a new Active bid and publishes bid.placed after commit.
func (s *Service) PlaceBid(ctx context.Context, bidderID, listingID uuid.UUID, amount float64) (*domain.Bid, error) {
	if bidderID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Bidder id is required")
	}
	if listingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	if !validation.IsValidAmount(amount) {
		return nil, apperrors.New(apperrors.Validation, "Bid amount must be a positive finite number")
	}

	bid := &domain.Bid{
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    domain.BidActive,
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(bid).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to place bid", err)
	}
	eventDataBytes, _ := json.Marshal(map[string]interface{}{
		"bid_id": bid.BidID,
		"amount": bid.Amount,
	})
	if err := tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: "BID_PLACED",
		ActorID:   &bidderID,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to record bid event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to place bid", err)
	}

	s.Broker.Publish(ctx, events.TopicBidPlaced, events.BidPlaced{
		ListingID: listingID,
		BidID:     bid.BidID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  bid.CreatedAt,
	})
	return bid, nil
}

// WithdrawBid sets the bid to Withdrawn with a single conditional write.
// Only on a zero-row result does it re-read to classify the failure:
// not-found, already-withdrawn, then wrong-bidder, in that order. A re-read
// that shows the write should have matched is reported as a Conflict rather
// than silently retried.
func (s *Service) WithdrawBid(ctx context.Context, bidID, bidderID uuid.UUID) error {
	if bidID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "Bid id is required")
	}
	if bidderID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "Bidder id is required")
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Bid{}).
		Where("bid_id = ? AND status = ? AND bidder_id = ?", bidID, domain.BidActive, bidderID).
		Update("status", domain.BidWithdrawn)
	if res.Error != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to withdraw bid", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return s.diagnoseWithdrawMiss(ctx, bidID, bidderID)
	}

	var bid domain.Bid
	if err := tx.Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to withdraw bid", err)
	}
	eventDataBytes, _ := json.Marshal(map[string]interface{}{
		"bid_id": bid.BidID,
		"amount": bid.Amount,
	})
	if err := tx.Create(&domain.ListingEvent{
		ListingID: bid.ListingID,
		EventType: "BID_WITHDRAWN",
		ActorID:   &bidderID,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to record bid event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.Wrap(apperrors.Internal, "Failed to withdraw bid", err)
	}

	s.Broker.Publish(ctx, events.TopicBidWithdrawn, events.BidWithdrawn{
		BidID:       bid.BidID,
		ListingID:   bid.ListingID,
		BidderID:    bidderID,
		Amount:      bid.Amount,
		WithdrawnAt: time.Now().UTC(),
	})
	return nil
}

func (s *Service) diagnoseWithdrawMiss(ctx context.Context, bidID, bidderID uuid.UUID) error {
	var bid domain.Bid
	if err := s.DB.WithContext(ctx).Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.New(apperrors.NotFound, "Bid not found")
		}
		return apperrors.Wrap(apperrors.Internal, "Failed to withdraw bid", err)
	}
	if bid.Status == domain.BidWithdrawn {
		return apperrors.New(apperrors.InvalidTransition, "Bid already withdrawn")
	}
	if bid.BidderID != bidderID {
		return apperrors.New(apperrors.Unauthorized, "Only the original bidder can withdraw a bid")
	}
	// Found, active and bidder-matching, yet the conditional write matched
	// nothing: a lost-update race the store should not permit.
	return apperrors.New(apperrors.Conflict, "Bid withdrawal hit an unresolvable write conflict")
}

// GetBids returns all Active bids for a listing, highest amount first, most
// recent first among equal amounts. Withdrawn bids are never included.
func (s *Service) GetBids(ctx context.Context, listingID uuid.UUID) ([]domain.Bid, error) {
	if listingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	var bids []domain.Bid
	if err := s.DB.WithContext(ctx).
		Where("listing_id = ? AND status = ?", listingID, domain.BidActive).
		Order("amount DESC").Order("created_at DESC").
		Find(&bids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch bids", err)
	}
	return bids, nil
}

// GetCurrentHigh returns the current highest Active bid, or nil if there is none.
func (s *Service) GetCurrentHigh(ctx context.Context, listingID uuid.UUID) (*domain.Bid, error) {
	bids, err := s.GetBids(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, nil
	}
	return &bids[0], nil
}
