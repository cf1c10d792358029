// Package feed keeps the browse projection: a denormalized copy of every
// discoverable listing, updated by reacting to lifecycle events. It is
// eventually consistent by design; readers never touch the listing store.
package feed

import (
	"context"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/events"
	"bazaar-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

// ListingSource is the listing detail fetch seam. Owned by the listings
// service in this deployment, but modeled as an interface so the projector
// can run against a remote read path.
type ListingSource interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error)
}

// RegisterSubscribers wires the projector to the broker. Called once at
// startup; registration is explicit, never implicit global state.
func (s *Service) RegisterSubscribers(b events.Broker) {
	b.Subscribe(events.TopicListingCreated, s.HandleListingChanged)
	b.Subscribe(events.TopicListingUpdated, s.HandleListingChanged)
	b.Subscribe(events.TopicListingWithdrawn, s.HandleListingClosed)
	b.Subscribe(events.TopicListingSold, s.HandleListingClosed)
	b.Subscribe(events.TopicFeedUpdated, s.handleFeedUpdated)
}

// HandleListingChanged re-fetches the listing and upserts its projection row.
// A failed fetch is logged and skipped: this is a best-effort projection and
// at-least-once delivery means a later event will converge it.
func (s *Service) HandleListingChanged(ctx context.Context, payload interface{}) {
	var listingID uuid.UUID
	switch p := payload.(type) {
	case events.ListingCreated:
		listingID = p.ListingID
	case events.ListingUpdated:
		listingID = p.ListingID
	default:
		log.Warn().Interface("payload", payload).Msg("Feed projector: unexpected payload for listing change")
		return
	}

	listing, err := s.Source.GetListing(ctx, listingID)
	if err != nil {
		log.Warn().Err(err).Str("listing_id", listingID.String()).Msg("Feed projector: listing fetch failed, skipping")
		return
	}
	if err := s.upsert(ctx, listing); err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("Feed projector: upsert failed")
		return
	}
	s.Broker.Publish(ctx, events.TopicFeedUpdated, events.FeedUpdated{Reason: "listing_upserted"})
}

// HandleListingClosed removes the projection row. Deleting an absent row is a
// no-op success, so redelivery is harmless.
func (s *Service) HandleListingClosed(ctx context.Context, payload interface{}) {
	var listingID uuid.UUID
	switch p := payload.(type) {
	case events.ListingWithdrawn:
		listingID = p.ListingID
	case events.ListingSold:
		listingID = p.ListingID
	default:
		log.Warn().Interface("payload", payload).Msg("Feed projector: unexpected payload for listing close")
		return
	}

	if err := s.remove(ctx, listingID); err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("Feed projector: delete failed")
		return
	}
	s.Broker.Publish(ctx, events.TopicFeedUpdated, events.FeedUpdated{Reason: "listing_removed"})
}

func (s *Service) upsert(ctx context.Context, listing *domain.Listing) error {
	item := domain.FeedItem{
		ListingID:        listing.ListingID,
		Title:            listing.Title,
		Description:      listing.Description,
		Price:            listing.MinAsk,
		Tags:             listing.Tags,
		Status:           string(listing.Status),
		OwnerID:          listing.SellerID,
		ListingCreatedAt: listing.CreatedAt,
	}
	if len(listing.PhotoURLs) > 0 {
		item.ImageURL = listing.PhotoURLs[0]
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}},
		UpdateAll: true,
	}).Create(&item).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to upsert feed row", err)
	}
	// Tag rows are replaced wholesale so filters never see a stale mix.
	if err := tx.Where("listing_id = ?", listing.ListingID).Delete(&domain.FeedItemTag{}).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to replace feed tags", err)
	}
	for _, tag := range listing.Tags {
		if err := tx.Create(&domain.FeedItemTag{ListingID: listing.ListingID, Tag: tag}).Error; err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.Internal, "Failed to replace feed tags", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.Wrap(apperrors.Internal, "Failed to upsert feed row", err)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, listingID uuid.UUID) error {
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Where("listing_id = ?", listingID).Delete(&domain.FeedItem{}).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to delete feed row", err)
	}
	if err := tx.Where("listing_id = ?", listingID).Delete(&domain.FeedItemTag{}).Error; err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.Internal, "Failed to delete feed tags", err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.Wrap(apperrors.Internal, "Failed to delete feed row", err)
	}
	return nil
}
