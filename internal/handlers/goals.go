package handlers

import (
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// GoalHandler serves goal CRUD for the authenticated user
type GoalHandler struct {
	goals *services.GoalService
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goals *services.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// List handles GET /goals
func (h *GoalHandler) List(c *fiber.Ctx) error {
	list, err := h.goals.FindAll(c.UserContext(), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list.Goals,
		"meta":    list.Meta,
	})
}

// Get handles GET /goals/:goalId
func (h *GoalHandler) Get(c *fiber.Ctx) error {
	goal, err := h.goals.FindOne(c.UserContext(), c.Params("goalId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, goal)
}

// Create handles POST /goals
func (h *GoalHandler) Create(c *fiber.Ctx) error {
	var in services.CreateGoalInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.goals.Create(c.UserContext(), authUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, result)
}

// Delete handles DELETE /goals/:goalId
func (h *GoalHandler) Delete(c *fiber.Ctx) error {
	if err := h.goals.Remove(c.UserContext(), c.Params("goalId"), authUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Goal deleted",
	})
}
