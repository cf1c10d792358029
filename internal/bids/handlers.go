package bids

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

type placeBidRequest struct {
	ListingID string  `json:"listing_id"`
	Amount    float64 `json:"amount"`
}

// POST /api/v1/bids/place-bid
func (h *Handlers) PlaceBid(c *fiber.Ctx) error {
	bidderID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	bid, err := h.Service.PlaceBid(c.Context(), bidderID, listingID, req.Amount)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Bid placed successfully", fiber.Map{"bid": bid}, nil)
}

type withdrawBidRequest struct {
	BidID string `json:"bid_id"`
}

// POST /api/v1/bids/withdraw-bid
func (h *Handlers) WithdrawBid(c *fiber.Ctx) error {
	bidderID, ok := middleware.GetActorID(c)
	if !ok {
		return response.Error(c, "Missing actor id", fiber.StatusUnauthorized, nil)
	}
	var req withdrawBidRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.Validation, "Invalid request body")
	}
	bidID, err := uuid.Parse(req.BidID)
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid bid_id")
	}
	if err := h.Service.WithdrawBid(c.Context(), bidID, bidderID); err != nil {
		return err
	}
	return response.Success(c, "Bid withdrawn successfully", fiber.Map{"bid_id": bidID}, nil)
}

// GET /api/v1/bids/get-bids/:listing_id
func (h *Handlers) GetBids(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	bids, err := h.Service.GetBids(c.Context(), listingID)
	if err != nil {
		return err
	}
	return response.Success(c, "Bids fetched successfully", fiber.Map{"bids": bids}, nil)
}

// GET /api/v1/bids/get-current-high/:listing_id
func (h *Handlers) GetCurrentHigh(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return apperrors.New(apperrors.Validation, "Invalid listing_id")
	}
	bid, err := h.Service.GetCurrentHigh(c.Context(), listingID)
	if err != nil {
		return err
	}
	return response.Success(c, "Current high bid fetched successfully", fiber.Map{"bid": bid}, nil)
}
