package handlers

import (
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// GoalPlanHandler serves plan creation and plan reads for a goal
type GoalPlanHandler struct {
	service *services.GoalPlanService
}

// NewGoalPlanHandler creates a new goal plan handler
func NewGoalPlanHandler(service *services.GoalPlanService) *GoalPlanHandler {
	return &GoalPlanHandler{service: service}
}

type createPlanRequest struct {
	GoalID             string `json:"goal_id"`
	GoalDescription    string `json:"goal_description"`
	ContextDescription string `json:"context_description"`
	TargetDate         string `json:"target_date"`
	UserID             string `json:"user_id"`
}

// CreatePlan handles POST /goals/create-plan
func (h *GoalPlanHandler) CreatePlan(c *fiber.Ctx) error {
	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.service.CreatePlan(c.UserContext(), services.CreatePlanInput{
		UserID:             actingUserID(c, req.UserID),
		GoalID:             req.GoalID,
		GoalDescription:    req.GoalDescription,
		ContextDescription: req.ContextDescription,
		TargetDate:         req.TargetDate,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, result)
}

// GetPlan handles GET /goals/:goalId/plan
func (h *GoalPlanHandler) GetPlan(c *fiber.Ctx) error {
	userID := authUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Authentication required",
		})
	}

	plan, err := h.service.GetPlan(c.UserContext(), c.Params("goalId"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, plan)
}
