package handlers

import (
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PlanHandler serves stored plans and background generation jobs
type PlanHandler struct {
	plans *services.PlanService
	jobs  *services.PlanJobService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *services.PlanService, jobs *services.PlanJobService) *PlanHandler {
	return &PlanHandler{plans: plans, jobs: jobs}
}

// Generate handles POST /plans/goals/:goalId/generate
func (h *PlanHandler) Generate(c *fiber.Ctx) error {
	jobID, err := h.jobs.StartGeneration(c.UserContext(), c.Params("goalId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusAccepted, fiber.Map{"jobId": jobID})
}

// Status handles GET /plans/:jobId/status
func (h *PlanHandler) Status(c *fiber.Ctx) error {
	status, err := h.jobs.GetStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, status)
}

// FindByGoal handles GET /plans/goals/:goalId
func (h *PlanHandler) FindByGoal(c *fiber.Ctx) error {
	plan, err := h.plans.FindByGoalID(c.UserContext(), c.Params("goalId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, plan)
}

// FindOne handles GET /plans/:planId
func (h *PlanHandler) FindOne(c *fiber.Ctx) error {
	plan, err := h.plans.FindOne(c.UserContext(), c.Params("planId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, plan)
}
