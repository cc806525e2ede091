package handlers

import (
	"github.com/AhaanV05/Reverse-Turing/middleware"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/gofiber/fiber/v2"
)

type MatchHandler struct {
	Matchmaking *services.MatchmakingService
}

func SetupMatchRoutes(app *fiber.App, h *MatchHandler, jwtSecret string) {
	secured := app.Group("/api", middleware.UserAuthMiddleware(jwtSecret))
	secured.Get("/match-making", h.Enqueue)
	secured.Get("/match-status", h.Poll)
}

func (h *MatchHandler) Enqueue(c *fiber.Ctx) error {
	if err := h.Matchmaking.Enqueue(c.UserContext(), username(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Added to matchmaking queue."})
}

func (h *MatchHandler) Poll(c *fiber.Ctx) error {
	res, err := h.Matchmaking.Poll(c.UserContext(), username(c))
	if err != nil {
		return fail(c, err)
	}
	switch res.State {
	case services.PollMatched:
		return c.JSON(fiber.Map{"room": res.RoomID})
	case services.PollNotQueued:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not in matchmaking queue."})
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No match found."})
	}
}
