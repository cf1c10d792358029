package feed

import (
	"strconv"
	"strings"

	"bazaar-backend/internal/pkg/apperrors"
	"bazaar-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

func (h *Handlers) page(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", h.Service.PageSize)
	offset := c.QueryInt("offset", 0)
	return limit, offset
}

// GET /api/v1/feed/latest
func (h *Handlers) GetLatest(c *fiber.Ctx) error {
	limit, offset := h.page(c)
	items, err := h.Service.GetLatest(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return response.Success(c, "Feed fetched successfully", fiber.Map{"items": items}, nil)
}

// GET /api/v1/feed/filter?tags=a,b&min_price=..&max_price=..
// Dispatches to the tag filter, the price filter, or both.
func (h *Handlers) Filter(c *fiber.Ctx) error {
	limit, offset := h.page(c)

	var tags []string
	if raw := c.Query("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	minRaw, maxRaw := c.Query("min_price"), c.Query("max_price")
	hasPrice := minRaw != "" || maxRaw != ""
	var minPrice, maxPrice float64
	if hasPrice {
		if minRaw == "" || maxRaw == "" {
			return apperrors.New(apperrors.Validation, "Both min_price and max_price are required for a price filter")
		}
		var err error
		if minPrice, err = strconv.ParseFloat(minRaw, 64); err != nil {
			return apperrors.New(apperrors.Validation, "Invalid min_price")
		}
		if maxPrice, err = strconv.ParseFloat(maxRaw, 64); err != nil {
			return apperrors.New(apperrors.Validation, "Invalid max_price")
		}
	}

	switch {
	case len(tags) > 0 && hasPrice:
		res, err := h.Service.FilterByTagsAndPrice(c.Context(), tags, minPrice, maxPrice, limit, offset)
		if err != nil {
			return err
		}
		return response.Success(c, "Feed fetched successfully", fiber.Map{"items": res}, nil)
	case len(tags) > 0:
		res, err := h.Service.FilterByTags(c.Context(), tags, limit, offset)
		if err != nil {
			return err
		}
		return response.Success(c, "Feed fetched successfully", fiber.Map{"items": res}, nil)
	case hasPrice:
		res, err := h.Service.FilterByPrice(c.Context(), minPrice, maxPrice, limit, offset)
		if err != nil {
			return err
		}
		return response.Success(c, "Feed fetched successfully", fiber.Map{"items": res}, nil)
	default:
		return apperrors.New(apperrors.Validation, "At least one of tags or a price range is required")
	}
}
