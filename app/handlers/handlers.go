// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/app/middleware"
	businessflow "github.com/gridops/loadshed-review/business_flow"
	"github.com/gridops/loadshed-review/refdata"
	"github.com/gridops/loadshed-review/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		if err.Kind().String() == "slice" {
			return err.Field() + " must contain at least " + err.Param() + " items"
		}
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// flowErrorMapping maps a business error to its HTTP response
type flowErrorMapping struct {
	is      func(error) bool
	status  int
	code    string
	message string
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

var flowErrorMappings = []flowErrorMapping{
	{businessflow.IsSessionNotFound, fiber.StatusNotFound, "SESSION_NOT_FOUND", "Review session not found"},
	{businessflow.IsSessionExpired, fiber.StatusGone, "SESSION_EXPIRED", "Review session has expired"},
	{businessflow.IsTooManySessions, fiber.StatusServiceUnavailable, "TOO_MANY_SESSIONS", "Too many open review sessions"},
	{businessflow.IsInvalidTableKind, fiber.StatusBadRequest, "INVALID_TABLE_KIND", "Invalid reference table kind"},
	{businessflow.IsTableNotLoaded, fiber.StatusNotFound, "TABLE_NOT_LOADED", "Reference table is not loaded"},
	{businessflow.IsFileRequired, fiber.StatusBadRequest, "FILE_REQUIRED", "File is required"},
	{businessflow.IsFileTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File too large"},
	{refdata.IsHeaderError, fiber.StatusUnprocessableEntity, "HEADER_NOT_FOUND", "Reference table header not found"},
	{isErr(refdata.ErrUnsupportedFormat), fiber.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "Unsupported file format"},
	{isErr(refdata.ErrSchemaMismatch), fiber.StatusUnprocessableEntity, "SCHEMA_MISMATCH", "Reference table columns do not match"},
	{isErr(refdata.ErrMissingInput), fiber.StatusBadRequest, "TABLE_READ_FAILED", "Reference table could not be read"},
	{businessflow.IsMasterListEmpty, fiber.StatusConflict, "MASTER_LIST_EMPTY", "Master list is not available"},
	{businessflow.IsInvalidCriteria, fiber.StatusBadRequest, "INVALID_CRITERIA", "Invalid filter criteria"},
	{businessflow.IsInvalidGroupBy, fiber.StatusBadRequest, "INVALID_GROUP_BY", "Invalid group by field"},
	{businessflow.IsInvalidStageKey, fiber.StatusBadRequest, "INVALID_STAGE_COLUMN", "Invalid stage column"},
	{businessflow.IsUnknownStageKey, fiber.StatusBadRequest, "UNKNOWN_STAGE_COLUMN", "Unknown stage column"},
	{businessflow.IsSameStageColumns, fiber.StatusBadRequest, "SAME_STAGE_COLUMNS", "Choose two different stage columns"},
	{businessflow.IsNoSimulation, fiber.StatusConflict, "NO_SIMULATION", "No simulation is running"},
	{businessflow.IsNoEdits, fiber.StatusBadRequest, "NO_EDITS", "At least one edit is required"},
	{businessflow.IsUnknownAssignment, fiber.StatusBadRequest, "UNKNOWN_ASSIGNMENT", "Unknown assignment"},
	{businessflow.IsSimulationNameEmpty, fiber.StatusBadRequest, "SIMULATION_NAME_REQUIRED", "Simulation name is required"},
	{businessflow.IsSimulationNotFound, fiber.StatusNotFound, "SIMULATION_NOT_FOUND", "Saved simulation not found"},
	{businessflow.IsInvalidExportFilename, fiber.StatusBadRequest, "INVALID_EXPORT_FILENAME", "Invalid export filename"},
	{businessflow.IsInvalidExportView, fiber.StatusBadRequest, "INVALID_EXPORT_VIEW", "Invalid export view"},
	{businessflow.IsPersistenceUnavailable, fiber.StatusServiceUnavailable, "PERSISTENCE_UNAVAILABLE", "Persistence is not enabled"},
	{businessflow.IsInvalidPage, fiber.StatusBadRequest, "INVALID_PAGE", "Invalid page"},
	{businessflow.IsInvalidPageSize, fiber.StatusBadRequest, "INVALID_PAGE_SIZE", "Invalid page size"},
}

// baseHandler carries the response helpers shared by the review handlers
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// FlowErrorResponse renders a business flow error. Unmapped errors are logged and answered with 500.
func (h *baseHandler) FlowErrorResponse(c fiber.Ctx, err error, operation, fallbackMessage, fallbackCode string) error {
	for _, m := range flowErrorMappings {
		if !m.is(err) {
			continue
		}
		code := m.code
		var details any
		var be *businessflow.BusinessError
		if errors.As(err, &be) {
			code = be.Code
			details = be.Message
		}
		var he *refdata.HeaderError
		if errors.As(err, &he) {
			code = "HEADER_NOT_FOUND"
			details = fiber.Map{"kind": he.Kind, "missing": he.Missing, "probed_rows": he.ProbedRows}
		}
		return h.ErrorResponse(c, m.status, m.message, code, details)
	}

	log.Println(operation+" failed", err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

// validate runs struct validation and renders the failures
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, getValidationErrorMessage(fe))
			}
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

func (h *baseHandler) missingSession(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Session not found in context", "MISSING_SESSION", nil)
}

func (h *baseHandler) pageRequest(c fiber.Ctx) dto.PageRequest {
	return dto.PageRequest{
		Page:     fiber.Query[int](c, "page"),
		PageSize: fiber.Query[int](c, "page_size"),
	}
}

func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.RequestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = requestid.FromContext(c)
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	if sessionID, ok := middleware.GetSessionIDFromContext(c); ok {
		ctx = context.WithValue(ctx, utils.SessionIDKey, sessionID)
	}
	return ctx, cancel
}
