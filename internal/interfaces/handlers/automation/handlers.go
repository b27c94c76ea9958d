package automation

import (
	"errors"

	automationsvc "sellerpilot-backend/internal/application/automation"
	statssvc "sellerpilot-backend/internal/application/stats"
	"sellerpilot-backend/internal/models"
	"sellerpilot-backend/internal/pkg/response"
	"sellerpilot-backend/internal/scheduler"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for automation endpoints.
type Handlers struct {
	Engine    *automationsvc.Engine
	Scheduler *scheduler.Scheduler
	Stats     *statssvc.Service
}

// GetRuns GET /api/v1/automation/get-runs?rule=&page=&per_page= — run audit
// feed, newest first.
func (h *Handlers) GetRuns(c *fiber.Ctx) error {
	rule := c.Query("rule")
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	result, err := h.Engine.History(c.Context(), rule, page, perPage)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Runs fetched successfully", result.Items, fiber.Map{
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

// GetJobs GET /api/v1/automation/get-jobs — per-rule schedule state.
func (h *Handlers) GetJobs(c *fiber.Ctx) error {
	return response.Success(c, "Jobs fetched successfully", h.Scheduler.Jobs(), nil)
}

// RunSync POST /api/v1/automation/run-sync
func (h *Handlers) RunSync(c *fiber.Ctx) error {
	return h.trigger(c, models.RuleSync)
}

// RunStaleCheck POST /api/v1/automation/run-stale-check
func (h *Handlers) RunStaleCheck(c *fiber.Ctx) error {
	return h.trigger(c, models.RuleStale)
}

// RunOfferCheck POST /api/v1/automation/run-offer-check
func (h *Handlers) RunOfferCheck(c *fiber.Ctx) error {
	return h.trigger(c, models.RuleOffer)
}

// RunFeedbackCheck POST /api/v1/automation/run-feedback-check
func (h *Handlers) RunFeedbackCheck(c *fiber.Ctx) error {
	return h.trigger(c, models.RuleFeedback)
}

// trigger runs one rule synchronously. A rule already in flight answers 409
// and the drop is recorded as a skipped run.
func (h *Handlers) trigger(c *fiber.Ctx, rule string) error {
	rep, err := h.Scheduler.TriggerNow(c.Context(), rule)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrRuleBusy):
			return response.Conflict(c, "Rule is already running")
		case errors.Is(err, scheduler.ErrUnknownRule):
			return response.Error(c, "Unknown rule", fiber.StatusNotFound, nil)
		default:
			return response.Error(c, "Run failed", fiber.StatusInternalServerError, fiber.Map{
				"error": err.Error(),
			})
		}
	}

	if h.Stats != nil {
		h.Stats.Invalidate(c.Context())
	}
	return response.Success(c, "Run completed", fiber.Map{
		"rule":       rep.Rule,
		"status":     rep.Status(),
		"considered": rep.Considered,
		"acted_on":   rep.ActedOn,
		"failed":     rep.Failed,
		"detail":     rep.Detail,
	}, nil)
}
