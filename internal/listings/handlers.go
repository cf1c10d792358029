package listings

import (
	"bazaar-backend/internal/middleware"
	"bazaar-backend/internal/pkg/apperrors"
	"bazaar-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

type createListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PhotoURLs   []string `json:"photo_urls"`
	Tags        []string `json:"tags"`
	MinAsk      *float64 `json:"min_ask"`
}

// POST /api/v1/listings/create-listing
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	listing, err := h.Service.CreateListing(c.Context(), CreateListingInput{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		PhotoURLs:   req.PhotoURLs,
		Tags:        req.Tags,
		MinAsk:      req.MinAsk,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"listing": listing}, nil)
}

// GET /api/v1/listings/get-listing/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	listing, err := h.Service.GetListing(c.Context(), listingID)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing fetched successfully", fiber.Map{"listing": listing}, nil)
}

type editListingRequest struct {
	ListingID   string    `json:"listing_id"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	PhotoURLs   *[]string `json:"photo_urls"`
	Tags        *[]string `json:"tags"`
	MinAsk      *float64  `json:"min_ask"`
}

// PUT /api/v1/listings/edit-listing
func (h *Handlers) EditListing(c *fiber.Ctx) error {
	updaterID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req editListingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	listing, err := h.Service.UpdateListing(c.Context(), UpdateListingInput{
		ListingID:   listingID,
		UpdaterID:   updaterID,
		Title:       req.Title,
		Description: req.Description,
		PhotoURLs:   req.PhotoURLs,
		Tags:        req.Tags,
		MinAsk:      req.MinAsk,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Listing updated successfully", fiber.Map{"listing": listing}, nil)
}

type listingActionRequest struct {
	ListingID string `json:"listing_id"`
	BidID     string `json:"bid_id"`
}

// POST /api/v1/listings/withdraw-listing
func (h *Handlers) WithdrawListing(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req listingActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	listing, err := h.Service.WithdrawListing(c.Context(), listingID, sellerID)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing withdrawn successfully", fiber.Map{"listing": listing}, nil)
}

// POST /api/v1/listings/accept-bid
func (h *Handlers) AcceptBid(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req listingActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	bidID, err := uuid.Parse(req.BidID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid bid_id")
	}
	listing, err := h.Service.AcceptBid(c.Context(), listingID, sellerID, bidID)
	if err != nil {
		return err
	}
	return response.Success(c, "Bid accepted successfully", fiber.Map{"listing": listing}, nil)
}
