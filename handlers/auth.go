package handlers

import (
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Admin *services.AdminService
}

func SetupAuthRoutes(app *fiber.App, h *AuthHandler) {
	app.Get("/api/login", h.Login)
	app.Get("/api/admin-login", h.AdminLogin)
	app.Get("/api/logout", h.Logout)
}

func (h *AuthHandler) login(c *fiber.Ctx, role string) error {
	user, err := h.Admin.Login(c.UserContext(), c.Query("username"), c.Query("password"), role)
	if err != nil {
		return fail(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    user.Token,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
	return c.JSON(fiber.Map{"username": user.Username, "score": user.Score})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	return h.login(c, models.RoleUserAccount)
}

func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	return h.login(c, models.RoleAdminAccount)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(-time.Hour),
	})
	return c.JSON(fiber.Map{"message": "Logged out."})
}
