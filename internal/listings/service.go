// Package listings owns the listing lifecycle: Active is the initial state,
// Sold and Withdrawn are terminal, and the only transitions are
// Active -> Sold (accept bid) and Active -> Withdrawn (withdraw). Every
// transition is one conditional write keyed on the current status, so two
// racing terminations cannot both succeed.
package listings

import (
	"context"
	"encoding/json"
	"fmt"

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

type CreateListingInput struct {
	SellerID    uuid.UUID
	Title       string
	Description string
	PhotoURLs   []string
	Tags        []string
	MinAsk      *float64
}

func validateCatalogFields(title, description *string, photos, tags *[]string, minAsk *float64) error {
	if title != nil && !validation.IsValidTitle(*title) {
		return apperrors.New(apperrors.Validation, fmt.Sprintf("Title is required and must be at most %d characters", validation.MaxTitleLen))
	}
	if description != nil && !validation.IsValidDescription(*description) {
		return apperrors.New(apperrors.Validation, fmt.Sprintf("Description is required and must be at most %d characters", validation.MaxDescriptionLen))
	}
	if photos != nil && !validation.IsValidPhotoList(*photos) {
		return apperrors.New(apperrors.Validation, fmt.Sprintf("Photos must be at most %d well-formed http(s) URLs", validation.MaxPhotos))
	}
	if tags != nil && !validation.IsValidTagList(*tags) {
		return apperrors.New(apperrors.Validation, fmt.Sprintf("Tags must be at most %d non-empty values", validation.MaxTags))
	}
	if minAsk != nil && !validation.IsValidMinAsk(*minAsk) {
		return apperrors.New(apperrors.Validation, "Minimum ask must be a non-negative finite number")
	}
	return nil
}

// CreateListing validates all catalog fields, inserts an Active listing and
// publishes listing.created after commit.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if in.SellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Seller id is required")
	}
	if err := validateCatalogFields(&in.Title, &in.Description, &in.PhotoURLs, &in.Tags, in.MinAsk); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		SellerID:    in.SellerID,
		Title:       in.Title,
		Description: in.Description,
		PhotoURLs:   domain.StringList(in.PhotoURLs),
		Tags:        domain.StringList(in.Tags),
		MinAsk:      in.MinAsk,
		Status:      domain.ListingActive,
		BidLog:      domain.StringList{},
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(listing).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to create listing", err)
	}
	eventDataBytes, _ := json.Marshal(map[string]interface{}{
		"title":   listing.Title,
		"min_ask": listing.MinAsk,
	})
	if err := tx.Create(&domain.ListingEvent{
		ListingID: listing.ListingID,
		EventType: "CREATED",
		ActorID:   &in.SellerID,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to record listing event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to create listing", err)
	}

	s.Broker.Publish(ctx, events.TopicListingCreated, events.ListingCreated{
		ListingID: listing.ListingID,
		SellerID:  listing.SellerID,
	})
	return listing, nil
}

// GetListing fetches one listing. It is also the detail fetch seam the feed
// synchronizer consumes.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	if listingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.NotFound, "Listing not found")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch listing", err)
	}
	return &listing, nil
}

type UpdateListingInput struct {
	ListingID   uuid.UUID
	UpdaterID   uuid.UUID
	Title       *string
	Description *string
	PhotoURLs   *[]string
	Tags        *[]string
	MinAsk      *float64
}

func stringListEqual(a domain.StringList, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UpdateListing applies the changed subset of the provided fields in one
// conditional write. Providing no fields, or only values identical to the
// stored ones, is a no-op: no write and no event.
func (s *Service) UpdateListing(ctx context.Context, in UpdateListingInput) (*domain.Listing, error) {
	if in.ListingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	if in.UpdaterID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Updater id is required")
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.NotFound, "Listing not found")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch listing", err)
	}

	updates := map[string]interface{}{}
	changed := []string{}
	if in.Title != nil && *in.Title != listing.Title {
		updates["title"] = *in.Title
		changed = append(changed, "title")
	}
	if in.Description != nil && *in.Description != listing.Description {
		updates["description"] = *in.Description
		changed = append(changed, "description")
	}
	if in.PhotoURLs != nil && !stringListEqual(listing.PhotoURLs, *in.PhotoURLs) {
		updates["photo_urls"] = domain.StringList(*in.PhotoURLs)
		changed = append(changed, "photo_urls")
	}
	if in.Tags != nil && !stringListEqual(listing.Tags, *in.Tags) {
		updates["tags"] = domain.StringList(*in.Tags)
		changed = append(changed, "tags")
	}
	if in.MinAsk != nil && (listing.MinAsk == nil || *listing.MinAsk != *in.MinAsk) {
		updates["min_ask"] = *in.MinAsk
		changed = append(changed, "min_ask")
	}
	if len(updates) == 0 {
		return &listing, nil
	}

	if listing.SellerID != in.UpdaterID {
		return nil, apperrors.New(apperrors.Unauthorized, "Only the seller can edit a listing")
	}
	if listing.Status != domain.ListingActive {
		return nil, apperrors.New(apperrors.InvalidTransition, fmt.Sprintf("Listing is not editable (status: %q)", listing.Status))
	}
	if err := validateCatalogFields(in.Title, in.Description, in.PhotoURLs, in.Tags, in.MinAsk); err != nil {
		return nil, err
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", in.ListingID, domain.ListingActive).
		Updates(updates)
	if res.Error != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to update listing", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, s.diagnoseTransitionMiss(ctx, in.ListingID)
	}
	eventDataBytes, _ := json.Marshal(map[string]interface{}{"changed_fields": changed})
	if err := tx.Create(&domain.ListingEvent{
		ListingID: in.ListingID,
		EventType: "UPDATED",
		ActorID:   &in.UpdaterID,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to record listing event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to update listing", err)
	}

	s.Broker.Publish(ctx, events.TopicListingUpdated, events.ListingUpdated{
		ListingID:     in.ListingID,
		SellerID:      listing.SellerID,
		ChangedFields: changed,
	})
	s.DB.WithContext(ctx).Where("listing_id = ?", in.ListingID).First(&listing)
	return &listing, nil
}

// WithdrawListing transitions Active -> Withdrawn, conditioned on the status
// still being Active so a concurrent sale cannot be overwritten.
func (s *Service) WithdrawListing(ctx context.Context, listingID, sellerID uuid.UUID) (*domain.Listing, error) {
	listing, err := s.checkOwnedActive(ctx, listingID, sellerID)
	if err != nil {
		return nil, err
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", listingID, domain.ListingActive).
		Update("status", domain.ListingWithdrawn)
	if res.Error != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to withdraw listing", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, s.diagnoseTransitionMiss(ctx, listingID)
	}
	if err := tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: "WITHDRAWN",
		ActorID:   &sellerID,
		EventData: datatypes.JSON([]byte(`{}`)),
	}).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to record listing event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to withdraw listing", err)
	}

	s.Broker.Publish(ctx, events.TopicListingWithdrawn, events.ListingWithdrawn{
		ListingID: listingID,
		SellerID:  sellerID,
	})
	listing.Status = domain.ListingWithdrawn
	return listing, nil
}

// AcceptBid transitions Active -> Sold, recording the accepted bid and
// appending it to the bid log. The bid id is taken on trust: whether it
// belongs to this listing or is still active is a cross-store question this
// core deliberately does not ask.
func (s *Service) AcceptBid(ctx context.Context, listingID, sellerID, bidID uuid.UUID) (*domain.Listing, error) {
	if bidID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Bid id is required")
	}
	listing, err := s.checkOwnedActive(ctx, listingID, sellerID)
	if err != nil {
		return nil, err
	}

	bidLog := append(domain.StringList{}, listing.BidLog...)
	bidLog = append(bidLog, bidID.String())

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", listingID, domain.ListingActive).
		Updates(map[string]interface{}{
			"status":       domain.ListingSold,
			"accepted_bid": bidID,
			"bid_log":      bidLog,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to accept bid", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, s.diagnoseTransitionMiss(ctx, listingID)
	}
	eventDataBytes, _ := json.Marshal(map[string]interface{}{"accepted_bid": bidID})
	if err := tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: "SOLD",
		ActorID:   &sellerID,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to record listing event", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to accept bid", err)
	}

	s.Broker.Publish(ctx, events.TopicListingSold, events.ListingSold{
		ListingID:   listingID,
		SellerID:    sellerID,
		AcceptedBid: bidID,
	})
	listing.Status = domain.ListingSold
	listing.AcceptedBid = &bidID
	listing.BidLog = bidLog
	return listing, nil
}

// checkOwnedActive validates existence, ownership and Active status, in that
// order. The later conditional write re-checks the status atomically.
func (s *Service) checkOwnedActive(ctx context.Context, listingID, sellerID uuid.UUID) (*domain.Listing, error) {
	if listingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	if sellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Seller id is required")
	}
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.NotFound, "Listing not found")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch listing", err)
	}
	if listing.SellerID != sellerID {
		return nil, apperrors.New(apperrors.Unauthorized, "Only the seller can modify a listing")
	}
	if listing.Status != domain.ListingActive {
		return nil, apperrors.New(apperrors.InvalidTransition, fmt.Sprintf("Listing is not active (status: %q)", listing.Status))
	}
	return &listing, nil
}

// diagnoseTransitionMiss classifies a conditional write that matched nothing:
// the listing vanished, or its status changed under us. Anything else is a
// Conflict the caller should hear about, not a silent success.
func (s *Service) diagnoseTransitionMiss(ctx context.Context, listingID uuid.UUID) error {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.New(apperrors.NotFound, "Listing not found")
		}
		return apperrors.Wrap(apperrors.Internal, "Failed to fetch listing", err)
	}
	if listing.Status != domain.ListingActive {
		return apperrors.New(apperrors.InvalidTransition, fmt.Sprintf("Listing is not active (status: %q)", listing.Status))
	}
	return apperrors.New(apperrors.Conflict, "Listing transition hit an unresolvable write conflict")
}
