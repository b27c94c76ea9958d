package stats

import (
	statssvc "sellerpilot-backend/internal/application/stats"
	"sellerpilot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for the stats endpoint.
type Handlers struct {
	Service *statssvc.Service
}

// Overview GET /api/v1/stats — dashboard counters, served from the short-TTL
// cache when warm.
func (h *Handlers) Overview(c *fiber.Ctx) error {
	overview, err := h.Service.Overview(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats fetched successfully", overview, nil)
}
