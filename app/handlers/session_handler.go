package handlers

import (
	"github.com/gridops/loadshed-review/app/middleware"
	businessflow "github.com/gridops/loadshed-review/business_flow"
	"github.com/gofiber/fiber/v3"
)

// SessionHandlerInterface defines the contract for review session handlers
type SessionHandlerInterface interface {
	CreateSession(c fiber.Ctx) error
	SessionStatus(c fiber.Ctx) error
	CloseSession(c fiber.Ctx) error
}

// SessionHandler opens and closes review sessions
type SessionHandler struct {
	baseHandler
	flow businessflow.ReviewFlow
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(flow businessflow.ReviewFlow) *SessionHandler {
	return &SessionHandler{baseHandler: newBaseHandler(), flow: flow}
}

// CreateSession opens a review session
// @Summary Open review session
// @Description Open an in-memory review session and receive the bearer token addressing it
// @Tags Sessions
// @Produce json
// @Success 201 {object} dto.APIResponse{data=dto.CreateSessionResponse} "Session opened"
// @Failure 503 {object} dto.APIResponse "Too many open sessions"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/sessions")
	defer cancel()

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.CreateSession(ctx, metadata)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Create session", "Failed to open review session", "SESSION_CREATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Review session opened", result)
}

// SessionStatus reports the state of the current session
// @Summary Session status
// @Description Loaded tables, master list size, stage columns and simulation state of the current session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SessionStatusResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 410 {object} dto.APIResponse "Session expired"
// @Router /api/v1/sessions/current [get]
func (h *SessionHandler) SessionStatus(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/sessions/current")
	defer cancel()

	result, err := h.flow.SessionStatus(ctx, sessionID)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Session status", "Failed to read session", "SESSION_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Session retrieved", result)
}

// CloseSession drops the current session and revokes its token
// @Summary Close review session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Session closed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Router /api/v1/sessions/current [delete]
func (h *SessionHandler) CloseSession(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/sessions/current")
	defer cancel()

	if err := h.flow.CloseSession(ctx, sessionID, middleware.GetSessionTokenFromContext(c)); err != nil {
		return h.FlowErrorResponse(c, err, "Close session", "Failed to close session", "SESSION_CLOSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Review session closed", nil)
}
