package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ResolveActor is the actor-identity resolver: it parses an optional JWT
// bearer token (issued by the auth service) and binds the authenticated user
// to the request. Resolution is best effort — a missing or invalid token
// leaves the request anonymous instead of rejecting it, and each handler or
// chat action decides whether an actor is required.
func ResolveActor(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get("Authorization"))
		if tokenString == "" {
			// Websocket clients cannot set headers from browsers; accept the
			// token as a query parameter on upgrade requests.
			tokenString = strings.TrimSpace(c.Query("token"))
		}
		if tokenString == "" {
			return c.Next()
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Next()
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Next()
		}

		if userID := actorIDFromClaims(claims); userID != 0 {
			c.Locals("user_id", userID)
		}
		if username := usernameFromClaims(claims); username != "" {
			c.Locals("username", username)
		}

		return c.Next()
	}
}

func bearerToken(authorization string) string {
	const bearer = "Bearer "
	if len(authorization) <= len(bearer) {
		return ""
	}
	if !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(authorization[len(bearer):])
}

func actorIDFromClaims(claims jwt.MapClaims) uint {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if id, err := normalizeActorID(value); err == nil {
			return id
		}
	}
	return 0
}

func normalizeActorID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 1 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(parsed), nil
	case int:
		if v < 1 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func usernameFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"username", "preferred_username", "name"} {
		if value, ok := claims[key]; ok {
			if str, ok := value.(string); ok {
				if trimmed := strings.TrimSpace(str); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
