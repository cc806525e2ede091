package handlers

import (
	"strings"

	"github.com/AhaanV05/Reverse-Turing/middleware"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	Rooms   *services.RoomService
	Guesses *services.GuessService
}

func SetupChatRoutes(app *fiber.App, h *ChatHandler, jwtSecret string) {
	secured := app.Group("/chat", middleware.UserAuthMiddleware(jwtSecret))
	secured.Get("/:id/get", h.Get)
	secured.Get("/:id/send", h.Send)
	secured.Get("/:id/end", h.End)
	secured.Get("/:id/judgement", h.Judgement)
}

func (h *ChatHandler) Get(c *fiber.Ctx) error {
	view, err := h.Rooms.Read(c.UserContext(), c.Params("id"), username(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	text := strings.TrimSpace(c.Query("message"))
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if err := h.Rooms.Send(c.UserContext(), c.Params("id"), username(c), text); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sent."})
}

func (h *ChatHandler) End(c *fiber.Ctx) error {
	if err := h.Rooms.End(c.UserContext(), c.Params("id"), username(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat ended."})
}

func (h *ChatHandler) Judgement(c *fiber.Ctx) error {
	res, err := h.Guesses.SubmitGuess(c.UserContext(), c.Params("id"), username(c), c.Query("judgement"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}
