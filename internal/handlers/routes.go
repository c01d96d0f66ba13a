package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Routes wires the handlers under one router group
type Routes struct {
	GoalPlan     *GoalPlanHandler
	Chat         *ChatHandler
	ChatWS       *ChatWebSocketHandler
	Plans        *PlanHandler
	Goals        *GoalHandler
	Tasks        *TaskHandler
	Auth         *LocalAuthHandler
	Users        *UserHandler
	Integrations *IntegrationsHandler

	RequireAuth  fiber.Handler
	OptionalAuth fiber.Handler
	// LLMLimit guards the endpoints that call the text generation backend
	LLMLimit  fiber.Handler
	WSLimit   fiber.Handler
	WSOrigins []string
}

// with drops unset middleware and appends the final handler
func with(final fiber.Handler, middleware ...fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(middleware)+1)
	for _, m := range middleware {
		if m != nil {
			chain = append(chain, m)
		}
	}
	return append(chain, final)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Register mounts every route on api
func (r *Routes) Register(api fiber.Router) {
	public := r.OptionalAuth
	private := r.RequireAuth

	if r.Auth != nil {
		api.Post("/auth/signup", r.Auth.Signup)
		api.Post("/auth/login", r.Auth.Login)
		api.Post("/auth/refresh", r.Auth.Refresh)
	}

	if r.Users != nil {
		api.Get("/user/me", with(r.Users.Me, private)...)
		api.Put("/user/settings", with(r.Users.UpdateSettings, private)...)
	}

	// Static goal paths go before /goals/:goalId
	if r.GoalPlan != nil {
		api.Post("/goals/create-plan", with(r.GoalPlan.CreatePlan, public, r.LLMLimit)...)
		api.Get("/goals/:goalId/plan", with(r.GoalPlan.GetPlan, private)...)
	}

	if r.Chat != nil {
		api.Post("/goals/:goalId/chat/send", with(r.Chat.Send, public, r.LLMLimit)...)
		api.Get("/goals/:goalId/chat/messages", with(r.Chat.Messages, private)...)
	}

	if r.ChatWS != nil {
		ws := websocket.New(r.ChatWS.Handle, websocket.Config{Origins: r.WSOrigins})
		api.Get("/goals/:goalId/chat/ws", with(ws, requireUpgrade, r.WSLimit, public)...)
	}

	if r.Tasks != nil {
		api.Get("/goals/:goalId/tasks", with(r.Tasks.List, private)...)
		api.Post("/goals/:goalId/tasks", with(r.Tasks.Create, private)...)
		api.Patch("/goals/:goalId/tasks/:taskId", with(r.Tasks.Update, private)...)
		api.Delete("/goals/:goalId/tasks/:taskId", with(r.Tasks.Delete, private)...)
		api.Post("/goals/:goalId/tasks/:taskId/discuss", with(r.Tasks.Discuss, private)...)
	}

	if r.Goals != nil {
		api.Get("/goals", with(r.Goals.List, private)...)
		api.Post("/goals", with(r.Goals.Create, private)...)
		api.Get("/goals/:goalId", with(r.Goals.Get, private)...)
		api.Delete("/goals/:goalId", with(r.Goals.Delete, private)...)
	}

	// /plans/goals/:goalId must win over /plans/:planId
	if r.Plans != nil {
		api.Post("/plans/goals/:goalId/generate", with(r.Plans.Generate, private, r.LLMLimit)...)
		api.Get("/plans/goals/:goalId", with(r.Plans.FindByGoal, private)...)
		api.Get("/plans/:jobId/status", with(r.Plans.Status, private)...)
		api.Get("/plans/:planId", with(r.Plans.FindOne, private)...)
	}

	if r.Integrations != nil {
		api.Post("/integrations/google/oauth", with(r.Integrations.GoogleOAuth, private)...)
		api.Post("/integrations/google/sync", with(r.Integrations.GoogleSync, private)...)
	}
}
