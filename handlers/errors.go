package handlers

import (
	"log"

	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/gofiber/fiber/v2"
)

// fail maps a service error onto an HTTP reply. Unknown errors are logged and
// hidden behind a generic 500.
func fail(c *fiber.Ctx, err error) error {
	var status int
	switch services.CodeOf(err) {
	case services.CodeUnauthorized:
		status = fiber.StatusUnauthorized
	case services.CodeNotFound:
		status = fiber.StatusNotFound
	case services.CodeConflict:
		status = fiber.StatusConflict
	case services.CodeLimitExceeded, services.CodeExpired:
		status = fiber.StatusBadRequest
	case services.CodeUpstream:
		status = fiber.StatusBadGateway
	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func username(c *fiber.Ctx) string {
	u, _ := c.Locals("username").(string)
	return u
}
