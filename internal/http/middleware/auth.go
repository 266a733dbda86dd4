package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserIDLocalKey is the context key holding the authenticated user id.
	UserIDLocalKey = "user_id"
	// UserEmailLocalKey is the context key holding the authenticated user email.
	UserEmailLocalKey = "user_email"
	// AccessTokenLocalKey is the context key holding the raw bearer token.
	AccessTokenLocalKey = "access_token"
)

// RequireAuth verifies the platform-issued access token on the request.
// Verification only: tokens are signed by the platform auth service with the
// shared project secret (HS256), and this service never issues its own.
//
// On success the user id, email, and raw token are stored in context locals.
func RequireAuth(jwtSecret string) fiber.Handler {
	secret := []byte(jwtSecret)

	return func(c *fiber.Ctx) error {
		raw := c.Get(fiber.HeaderAuthorization)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}
		tokenString := strings.TrimPrefix(raw, "Bearer ")
		if tokenString == raw || tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "malformed authorization header")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token missing subject")
		}

		c.Locals(UserIDLocalKey, sub)
		if email, ok := claims["email"].(string); ok {
			c.Locals(UserEmailLocalKey, email)
		}
		c.Locals(AccessTokenLocalKey, tokenString)

		return c.Next()
	}
}
