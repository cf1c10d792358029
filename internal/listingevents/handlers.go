package listingevents

import (
	"bazaar-backend/internal/pkg/apperrors"
	"bazaar-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// GET /api/v1/listing-events/:listing_id
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	evts, err := h.Service.GetListingEvents(c.Context(), listingID)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing events fetched successfully", fiber.Map{"events": evts}, nil)
}
