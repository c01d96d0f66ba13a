package handlers

import (
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler serves the tasks of a goal
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /goals/:goalId/tasks?date=
func (h *TaskHandler) List(c *fiber.Ctx) error {
	tasks, err := h.tasks.FindAll(c.UserContext(), c.Params("goalId"), authUserID(c), c.Query("date"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, tasks)
}

// Create handles POST /goals/:goalId/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var in services.CreateTaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.Create(c.UserContext(), c.Params("goalId"), authUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, task)
}

// Update handles PATCH /goals/:goalId/tasks/:taskId
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var in services.UpdateTaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.Update(c.UserContext(), c.Params("taskId"), authUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, task)
}

// Delete handles DELETE /goals/:goalId/tasks/:taskId
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.tasks.Remove(c.UserContext(), c.Params("taskId"), authUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task deleted",
	})
}

// Discuss handles POST /goals/:goalId/tasks/:taskId/discuss
func (h *TaskHandler) Discuss(c *fiber.Ctx) error {
	discussion, err := h.tasks.Discuss(c.UserContext(), c.Params("taskId"), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, discussion)
}
