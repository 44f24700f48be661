package handlers

import (
	"io"
	"strings"

	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/app/middleware"
	businessflow "github.com/gridops/loadshed-review/business_flow"
	"github.com/gridops/loadshed-review/export"
	"github.com/gridops/loadshed-review/utils"
	"github.com/gofiber/fiber/v3"
)

// ReviewHandlerInterface defines the contract for review handlers
type ReviewHandlerInterface interface {
	UploadTable(c fiber.Ctx) error
	RemoveTable(c fiber.Ctx) error
	ListUploads(c fiber.Ctx) error

	MasterList(c fiber.Ctx) error
	FilterView(c fiber.Ctx) error
	Aggregate(c fiber.Ctx) error
	StageColumns(c fiber.Ctx) error

	StartSimulation(c fiber.Ctx) error
	ApplyEdits(c fiber.Ctx) error
	ResetSimulation(c fiber.Ctx) error
	ClearSimulation(c fiber.Ctx) error
	GetSimulation(c fiber.Ctx) error
	SaveSimulation(c fiber.Ctx) error
	ListSavedSimulations(c fiber.Ctx) error
	GetSavedSimulation(c fiber.Ctx) error

	Compare(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// ReviewHandler serves the session-scoped review endpoints
type ReviewHandler struct {
	baseHandler
	flow           businessflow.ReviewFlow
	maxUploadBytes int64
}

// NewReviewHandler creates a new review handler. maxUploadBytes <= 0 leaves the upload size to the flow.
func NewReviewHandler(flow businessflow.ReviewFlow, maxUploadBytes int) *ReviewHandler {
	return &ReviewHandler{
		baseHandler:    newBaseHandler(),
		flow:           flow,
		maxUploadBytes: int64(maxUploadBytes),
	}
}

// UploadTable loads a reference table into the session
// @Summary Upload reference table
// @Description Upload a CSV or XLSX reference table. The master list is rebuilt and any running simulation is discarded.
// @Tags Tables
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param kind formData string true "Table kind (load_profile, ufls_assignment, uvls_assignment, emls_assignment, relay_location_incomer, relay_location_pocket, substation_masterlist, critical_load_flaglist, dn_excluded_list)"
// @Param file formData file true "CSV or XLSX file"
// @Success 201 {object} dto.APIResponse{data=dto.UploadTableResponse} "Table loaded"
// @Failure 400 {object} dto.APIResponse "Invalid request or file"
// @Failure 413 {object} dto.APIResponse "File too large"
// @Failure 415 {object} dto.APIResponse "Unsupported format"
// @Failure 422 {object} dto.APIResponse "Header not found"
// @Router /api/v1/tables [post]
func (h *ReviewHandler) UploadTable(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "FILE_REQUIRED", nil)
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "File too large", "FILE_TOO_LARGE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}

	req := dto.UploadTableRequest{
		Kind:     strings.TrimSpace(c.FormValue("kind")),
		FileName: fileHeader.Filename,
		Data:     data,
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/tables", utils.UploadTimeout)
	defer cancel()

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetSessionID(sessionID.String())
	result, err := h.flow.UploadTable(ctx, sessionID, &req, metadata)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Upload table", "Failed to load reference table", "UPLOAD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Reference table loaded", result)
}

// RemoveTable unloads a reference table
// @Summary Remove reference table
// @Tags Tables
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Table kind"
// @Success 200 {object} dto.APIResponse{data=dto.SessionStatusResponse}
// @Failure 400 {object} dto.APIResponse "Invalid kind"
// @Failure 404 {object} dto.APIResponse "Table not loaded"
// @Router /api/v1/tables/{kind} [delete]
func (h *ReviewHandler) RemoveTable(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tables/{kind}")
	defer cancel()

	result, err := h.flow.RemoveTable(ctx, sessionID, c.Params("kind"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Remove table", "Failed to remove reference table", "REMOVE_TABLE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reference table removed", result)
}

// ListUploads lists the upload attempts of the session
// @Summary List upload attempts
// @Tags Tables
// @Produce json
// @Security BearerAuth
// @Param failed_only query bool false "Only failed uploads"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListUploadsResponse}
// @Failure 503 {object} dto.APIResponse "Persistence disabled"
// @Router /api/v1/tables/uploads [get]
func (h *ReviewHandler) ListUploads(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	req := dto.ListUploadsRequest{
		FailedOnly:  fiber.Query[bool](c, "failed_only"),
		PageRequest: h.pageRequest(c),
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tables/uploads")
	defer cancel()

	result, err := h.flow.ListUploads(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "List uploads", "Failed to list uploads", "UPLOAD_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Uploads retrieved", result)
}

// MasterList returns one page of the master list
// @Summary Master list
// @Tags Views
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.MasterListResponse}
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/masterlist [get]
func (h *ReviewHandler) MasterList(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	req := h.pageRequest(c)

	ctx, cancel := h.createRequestContext(c, "/api/v1/masterlist")
	defer cancel()

	result, err := h.flow.MasterList(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Master list", "Failed to read master list", "MASTER_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Master list retrieved", result)
}

// FilterView filters the master list
// @Summary Filtered view
// @Description Filter by scheme, review year, stage, descriptive fields and free text; returns a page with headline figures
// @Tags Views
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.FilterViewRequest true "Filter criteria"
// @Success 200 {object} dto.APIResponse{data=dto.FilterViewResponse}
// @Failure 400 {object} dto.APIResponse "Invalid criteria"
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/views/filter [post]
func (h *ReviewHandler) FilterView(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.FilterViewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/views/filter")
	defer cancel()

	result, err := h.flow.FilterView(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Filter view", "Failed to filter master list", "FILTER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "View retrieved", result)
}

// Aggregate sums Pload by group
// @Summary Aggregate MW
// @Tags Views
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AggregateRequest true "Aggregation"
// @Success 200 {object} dto.APIResponse{data=dto.AggregateResponse}
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/views/aggregate [post]
func (h *ReviewHandler) Aggregate(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.AggregateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/views/aggregate")
	defer cancel()

	result, err := h.flow.Aggregate(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Aggregate", "Failed to aggregate", "AGGREGATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Aggregation retrieved", result)
}

// StageColumns lists the stage columns of the master list
// @Summary Stage columns
// @Tags Views
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StageColumnsResponse}
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/views/stage-columns [get]
func (h *ReviewHandler) StageColumns(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/views/stage-columns")
	defer cancel()

	result, err := h.flow.StageColumns(ctx, sessionID)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Stage columns", "Failed to list stage columns", "STAGE_COLUMNS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stage columns retrieved", result)
}

// StartSimulation starts or replaces the simulation of a target column
// @Summary Start simulation
// @Tags Simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StartSimulationRequest true "Target column, e.g. UFLS_2026"
// @Success 201 {object} dto.APIResponse{data=dto.SimulationResponse}
// @Failure 400 {object} dto.APIResponse "Invalid target"
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/simulation [post]
func (h *ReviewHandler) StartSimulation(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.StartSimulationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation")
	defer cancel()

	result, err := h.flow.StartSimulation(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Start simulation", "Failed to start simulation", "SIMULATION_START_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Simulation started", result)
}

// ApplyEdits applies simulated stages
// @Summary Apply simulation edits
// @Tags Simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApplyEditsRequest true "Edits"
// @Success 200 {object} dto.APIResponse{data=dto.ApplyEditsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid edits"
// @Failure 409 {object} dto.APIResponse "No simulation running"
// @Router /api/v1/simulation [patch]
func (h *ReviewHandler) ApplyEdits(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.ApplyEditsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation")
	defer cancel()

	result, err := h.flow.ApplyEdits(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Apply edits", "Failed to apply edits", "SIMULATION_EDIT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Edits applied", result)
}

// ResetSimulation restores the simulation to its starting state
// @Summary Reset simulation
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SimulationResponse}
// @Failure 409 {object} dto.APIResponse "No simulation running"
// @Router /api/v1/simulation/reset [post]
func (h *ReviewHandler) ResetSimulation(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation/reset")
	defer cancel()

	result, err := h.flow.ResetSimulation(ctx, sessionID)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Reset simulation", "Failed to reset simulation", "SIMULATION_RESET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Simulation reset", result)
}

// ClearSimulation removes every simulated stage
// @Summary Clear simulation
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SimulationResponse}
// @Failure 409 {object} dto.APIResponse "No simulation running"
// @Router /api/v1/simulation/clear [post]
func (h *ReviewHandler) ClearSimulation(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation/clear")
	defer cancel()

	result, err := h.flow.ClearSimulation(ctx, sessionID)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Clear simulation", "Failed to clear simulation", "SIMULATION_CLEAR_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Simulation cleared", result)
}

// GetSimulation returns the simulation grid
// @Summary Simulation grid
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Param only_flagged query bool false "Only rows with a Warning or Alert"
// @Success 200 {object} dto.APIResponse{data=dto.SimulationResponse}
// @Failure 409 {object} dto.APIResponse "No simulation running"
// @Router /api/v1/simulation [get]
func (h *ReviewHandler) GetSimulation(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	query := dto.SimulationQuery{OnlyFlagged: fiber.Query[bool](c, "only_flagged")}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation")
	defer cancel()

	result, err := h.flow.GetSimulation(ctx, sessionID, &query)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Get simulation", "Failed to read simulation", "SIMULATION_READ_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Simulation retrieved", result)
}

// SaveSimulation persists the simulation grid
// @Summary Save simulation
// @Tags Simulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveSimulationRequest true "Save name"
// @Success 201 {object} dto.APIResponse{data=dto.SavedSimulationDTO}
// @Failure 409 {object} dto.APIResponse "No simulation running"
// @Failure 503 {object} dto.APIResponse "Persistence disabled"
// @Router /api/v1/simulation/save [post]
func (h *ReviewHandler) SaveSimulation(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.SaveSimulationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulation/save")
	defer cancel()

	result, err := h.flow.SaveSimulation(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Save simulation", "Failed to save simulation", "SIMULATION_SAVE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Simulation saved", result)
}

// ListSavedSimulations lists saved simulations
// @Summary List saved simulations
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Param all_sessions query bool false "Include every session"
// @Param target query string false "Target column"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListSavedSimulationsResponse}
// @Failure 503 {object} dto.APIResponse "Persistence disabled"
// @Router /api/v1/simulations [get]
func (h *ReviewHandler) ListSavedSimulations(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	req := dto.ListSavedSimulationsRequest{
		AllSessions:  fiber.Query[bool](c, "all_sessions"),
		TargetColumn: c.Query("target"),
		PageRequest:  h.pageRequest(c),
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulations")
	defer cancel()

	result, err := h.flow.ListSavedSimulations(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "List saved simulations", "Failed to list saved simulations", "SIMULATION_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved simulations retrieved", result)
}

// GetSavedSimulation returns a saved simulation with its rows
// @Summary Get saved simulation
// @Tags Simulation
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Saved simulation UUID"
// @Success 200 {object} dto.APIResponse{data=dto.SavedSimulationDetail}
// @Failure 404 {object} dto.APIResponse "Not found"
// @Failure 503 {object} dto.APIResponse "Persistence disabled"
// @Router /api/v1/simulations/{uuid} [get]
func (h *ReviewHandler) GetSavedSimulation(c fiber.Ctx) error {
	if _, ok := middleware.GetSessionIDFromContext(c); !ok {
		return h.missingSession(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/simulations/{uuid}")
	defer cancel()

	result, err := h.flow.GetSavedSimulation(ctx, c.Params("uuid"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Get saved simulation", "Failed to load saved simulation", "SIMULATION_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved simulation retrieved", result)
}

// Compare labels the stage transitions between two columns
// @Summary Compare stage columns
// @Tags Compare
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CompareRequest true "Columns to compare"
// @Success 200 {object} dto.APIResponse{data=dto.CompareResponse}
// @Failure 400 {object} dto.APIResponse "Invalid columns"
// @Failure 409 {object} dto.APIResponse "Master list not available"
// @Router /api/v1/compare [post]
func (h *ReviewHandler) Compare(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.CompareRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/compare")
	defer cancel()

	result, err := h.flow.Compare(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Compare", "Failed to compare stage columns", "COMPARE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Comparison retrieved", result)
}

// Export downloads a view as an XLSX workbook
// @Summary Export to XLSX
// @Tags Export
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param request body dto.ExportRequest true "View and filename"
// @Success 200 {string} string "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 409 {object} dto.APIResponse "Nothing to export"
// @Router /api/v1/export [post]
func (h *ReviewHandler) Export(c fiber.Ctx) error {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		return h.missingSession(c)
	}

	var req dto.ExportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/export", utils.UploadTimeout)
	defer cancel()

	result, err := h.flow.Export(ctx, sessionID, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "Export", "Failed to export", "EXPORT_FAILED")
	}

	c.Set("Content-Type", export.ContentType)
	c.Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	return c.Send(result.Data)
}
