// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/app/services"
	"github.com/gridops/loadshed-review/utils"
	"github.com/gofiber/fiber/v3"
)

// SessionTokenLocalsKey holds the raw bearer token so a session can revoke it on close
const SessionTokenLocalsKey = "session_token"

// AuthMiddleware validates review session tokens
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate rejects requests without a valid session token and stores the session id in Locals
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Session token is required", "MISSING_SESSION_TOKEN")
		}

		// Validation also checks revocation
		claims, err := m.tokenService.ValidateSessionToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Session token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "Session token has been revoked", "TOKEN_REVOKED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid session token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		c.Locals(utils.SessionLocalsKey, claims.SessionID)
		c.Locals(SessionTokenLocalsKey, token)
		c.Locals("token_id", claims.TokenID)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// GetSessionIDFromContext returns the session id set by Authenticate
func GetSessionIDFromContext(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(utils.SessionLocalsKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetSessionTokenFromContext returns the bearer token set by Authenticate
func GetSessionTokenFromContext(c fiber.Ctx) string {
	token, _ := c.Locals(SessionTokenLocalsKey).(string)
	return token
}
