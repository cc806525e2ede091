package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the cookie token payload: who, and whether they are staff.
type Claims struct {
	Username string `json:"username"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken mints the long-lived account token stored on the user row
// and handed out as the auth cookie at login.
func GenerateToken(username, accountType, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: username,
		Type:     accountType,
	})
	return token.SignedString([]byte(secret))
}

func parseToken(tokenString, secret string) *Claims {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil
	}
	return claims
}

// UserAuthMiddleware requires a valid player token cookie and attaches the
// username to the request context.
func UserAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := parseToken(c.Cookies("token"), secret)
		if claims == nil || claims.Type != "user" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized access.",
			})
		}
		c.Locals("username", claims.Username)
		return c.Next()
	}
}

// AdminAuthMiddleware requires a valid admin token cookie.
func AdminAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := parseToken(c.Cookies("token"), secret)
		if claims == nil || claims.Type != "admin" {
			log.Printf("[AUTH] rejected admin request for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized access.",
			})
		}
		c.Locals("username", claims.Username)
		return c.Next()
	}
}
