package listings

import (
	"errors"

	automationsvc "sellerpilot-backend/internal/application/automation"
	listsvc "sellerpilot-backend/internal/application/listings"
	statssvc "sellerpilot-backend/internal/application/stats"
	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"
	"sellerpilot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for listing endpoints.
type Handlers struct {
	Service *listsvc.Service
	Engine  *automationsvc.Engine
	Stats   *statssvc.Service
}

// GetListings GET /api/v1/listings/get-listings?status=&page=&per_page=
func (h *Handlers) GetListings(c *fiber.Ctx) error {
	status := c.Query("status", "active")
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 20)

	result, err := h.Service.List(c.Context(), status, page, perPage)
	if err != nil {
		if errors.Is(err, listsvc.ErrUnknownStatus) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listings fetched successfully", result.Items, fiber.Map{
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

// RelistItem POST /api/v1/listings/relist-item/:item_id — relist one listing
// now. The staleness threshold does not apply; the cooldown does.
func (h *Handlers) RelistItem(c *fiber.Ctx) error {
	itemID := c.Params("item_id")
	if itemID == "" {
		return response.Error(c, "item_id is required", fiber.StatusBadRequest, nil)
	}

	action, err := h.Engine.RelistListing(c.Context(), itemID)
	if err != nil {
		switch {
		case errors.Is(err, automationsvc.ErrListingNotFound):
			return response.Error(c, "Listing not found", fiber.StatusNotFound, nil)
		case errors.Is(err, automationsvc.ErrRelistCooldown):
			return response.Conflict(c, "Listing was relisted recently")
		case marketplace.IsTransport(err):
			return response.Error(c, "Marketplace unavailable", fiber.StatusBadGateway, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	if action.Outcome == models.RelistOutcomeFailed {
		return response.Error(c, "Marketplace rejected the relist", fiber.StatusUnprocessableEntity, fiber.Map{
			"reason": action.ErrorMessage,
		})
	}

	if h.Stats != nil {
		h.Stats.Invalidate(c.Context())
	}
	return response.Success(c, "Item relisted", action, nil)
}
