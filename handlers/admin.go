package handlers

import (
	"strconv"

	"github.com/AhaanV05/Reverse-Turing/middleware"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Admin *services.AdminService
}

func SetupAdminRoutes(app *fiber.App, h *AdminHandler, jwtSecret string) {
	secured := app.Group("/api/admin", middleware.AdminAuthMiddleware(jwtSecret))
	secured.Get("/create-user", h.CreateUser)
	secured.Get("/ban", h.Ban)
	secured.Get("/unban", h.Unban)
	secured.Get("/leaderboard", h.Leaderboard)
	secured.Get("/logs", h.Logs)
}

func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	user, err := h.Admin.CreateUser(c.UserContext(), username(c), c.Query("username"), c.Query("password"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"username": user.Username, "token": user.Token})
}

func (h *AdminHandler) setBanned(c *fiber.Ctx, banned bool) error {
	if err := h.Admin.SetBanned(c.UserContext(), username(c), c.Query("username"), banned); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "OK"})
}

func (h *AdminHandler) Ban(c *fiber.Ctx) error   { return h.setBanned(c, true) }
func (h *AdminHandler) Unban(c *fiber.Ctx) error { return h.setBanned(c, false) }

func limitQuery(c *fiber.Ctx, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (h *AdminHandler) Leaderboard(c *fiber.Ctx) error {
	users, err := h.Admin.Leaderboard(c.UserContext(), limitQuery(c, 50))
	if err != nil {
		return fail(c, err)
	}
	rows := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		rows = append(rows, fiber.Map{"username": u.Username, "score": u.Score})
	}
	return c.JSON(rows)
}

func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	logs, err := h.Admin.Logs(c.UserContext(), limitQuery(c, 100))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(logs)
}
