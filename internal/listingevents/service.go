package listingevents

import (
	"context"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// GetListingEvents returns a listing's audit trail in chronological order.
func (s *Service) GetListingEvents(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	if listingID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "Listing id is required")
	}
	var evts []domain.ListingEvent
	if err := s.DB.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&evts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch listing events", err)
	}
	return evts, nil
}
