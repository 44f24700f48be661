package dto

import (
	"time"

	"github.com/gridops/loadshed-review/analytics"
	"github.com/gridops/loadshed-review/comparison"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/shopspring/decimal"
)

// UploadTableRequest represents one reference table upload
type UploadTableRequest struct {
	Kind     string `json:"kind" validate:"required,max=64"`
	FileName string `json:"file_name" validate:"required,max=255"`
	Data     []byte `json:"-"`
}

// UploadTableResponse represents the result of an upload
type UploadTableResponse struct {
	Table               LoadedTableDTO        `json:"table"`
	Status              SessionStatusResponse `json:"status"`
	SimulationDiscarded bool                  `json:"simulation_discarded"`
}

// PageRequest holds pagination parameters
type PageRequest struct {
	Page     int `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int `json:"page_size" query:"page_size" validate:"omitempty,min=1"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// MasterListResponse represents one page of the master list
type MasterListResponse struct {
	Rows       []*models.MasterListRow `json:"rows"`
	StageKeys  []models.StageKey       `json:"stage_keys"`
	Summary    analytics.Summary       `json:"summary"`
	Pagination PaginationInfo          `json:"pagination"`
}

// FilterViewRequest represents a filtered view query
type FilterViewRequest struct {
	Criteria analytics.Criteria `json:"criteria"`
	PageRequest
}

// FilterViewResponse represents one page of a filtered view with its headline figures
type FilterViewResponse struct {
	Rows       []*models.MasterListRow `json:"rows"`
	StageKeys  []models.StageKey       `json:"stage_keys"`
	Summary    analytics.Summary       `json:"summary"`
	BySchemes  []analytics.SchemeLoad  `json:"by_scheme"`
	Pagination PaginationInfo          `json:"pagination"`
	Cached     bool                    `json:"cached"`
}

// AggregateRequest represents a grouped MW aggregation query
type AggregateRequest struct {
	Criteria     analytics.Criteria `json:"criteria"`
	GroupBy      string             `json:"group_by" validate:"required"`
	ActiveColumn string             `json:"active_column,omitempty"`
	PivotColumn  string             `json:"pivot_column,omitempty"`
}

// GroupMW is the load of one group
type GroupMW struct {
	Key string          `json:"key"`
	MW  decimal.Decimal `json:"mw"`
}

// AggregateResponse represents grouped MW sums
type AggregateResponse struct {
	GroupBy      string                `json:"group_by"`
	ActiveColumn string                `json:"active_column,omitempty"`
	Groups       []GroupMW             `json:"groups"`
	Unassigned   decimal.Decimal       `json:"unassigned"`
	Total        decimal.Decimal       `json:"total"`
	Pivot        []analytics.PivotCell `json:"pivot,omitempty"`
	Cached       bool                  `json:"cached"`
}

// StageColumnsResponse lists the stage columns of the master list
type StageColumnsResponse struct {
	StageKeys []models.StageKey                        `json:"stage_keys"`
	Latest    map[models.Scheme]string                 `json:"latest"`
	Loads     []analytics.SchemeLoad                   `json:"loads"`
	Policies  map[models.Scheme]simulation.StagePolicy `json:"policies"`
}

// StartSimulationRequest starts a simulation of one stage column
type StartSimulationRequest struct {
	Target string `json:"target" validate:"required,max=64"`
}

// SimulationQuery narrows the simulation grid returned to the client
type SimulationQuery struct {
	OnlyFlagged bool `query:"only_flagged"`
}

// SimulationResponse represents the simulation grid
type SimulationResponse struct {
	Target    string                  `json:"target"`
	StageKeys []models.StageKey       `json:"stage_keys"`
	Summary   simulation.Summary      `json:"summary"`
	Rows      []*models.SimulationRow `json:"rows"`
}

// ApplyEditsRequest applies simulated stages
type ApplyEditsRequest struct {
	Edits []models.SimulationEdit `json:"edits" validate:"required,min=1,dive"`
}

// ApplyEditsResponse represents the applied changes and the recomputed grid
type ApplyEditsResponse struct {
	Changes []simulation.Change `json:"changes"`
	SimulationResponse
}

// SaveSimulationRequest persists the current simulation
type SaveSimulationRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// SavedSimulationDTO represents a saved simulation header
type SavedSimulationDTO struct {
	UUID         string          `json:"uuid"`
	SessionID    string          `json:"session_id"`
	Name         string          `json:"name"`
	TargetColumn string          `json:"target_column"`
	RowCount     int             `json:"row_count"`
	WarningCount int             `json:"warning_count"`
	AlertCount   int             `json:"alert_count"`
	SimulatedMW  decimal.Decimal `json:"simulated_mw"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SavedSimulationDetail represents a saved simulation with its rows
type SavedSimulationDetail struct {
	SavedSimulationDTO
	Rows []models.SimulationSaveRow `json:"rows"`
}

// ListSavedSimulationsRequest represents a saved simulation listing
type ListSavedSimulationsRequest struct {
	AllSessions  bool   `query:"all_sessions"`
	TargetColumn string `query:"target" validate:"omitempty,max=64"`
	PageRequest
}

// ListSavedSimulationsResponse represents one page of saved simulations
type ListSavedSimulationsResponse struct {
	Items      []SavedSimulationDTO `json:"items"`
	Pagination PaginationInfo       `json:"pagination"`
}

// CompareRequest compares two stage columns
type CompareRequest struct {
	From        string             `json:"from" validate:"required,max=64"`
	To          string             `json:"to" validate:"required,max=64"`
	OnlyChanged bool               `json:"only_changed"`
	Criteria    analytics.Criteria `json:"criteria"`
}

// CompareResponse represents the per-row transitions and their tally
type CompareResponse struct {
	From    string              `json:"from"`
	To      string              `json:"to"`
	Results []comparison.Result `json:"results"`
	Tally   []comparison.Count  `json:"tally"`
}

// Export views
const (
	ExportViewMaster     = "master"
	ExportViewSimulation = "simulation"
	ExportViewComparison = "comparison"
)

// ExportRequest represents an XLSX export
type ExportRequest struct {
	Filename string             `json:"filename" validate:"required,max=255"`
	View     string             `json:"view" validate:"required,oneof=master simulation comparison"`
	Criteria analytics.Criteria `json:"criteria"`
	From     string             `json:"from,omitempty"`
	To       string             `json:"to,omitempty"`
}

// ExportResult is the generated workbook
type ExportResult struct {
	Filename string
	Data     []byte
}

// ListUploadsRequest represents an upload audit listing
type ListUploadsRequest struct {
	FailedOnly bool `query:"failed_only"`
	PageRequest
}

// UploadAuditDTO represents one recorded upload attempt
type UploadAuditDTO struct {
	Kind         string    `json:"kind"`
	FileName     string    `json:"file_name"`
	RowCount     int       `json:"row_count"`
	HeaderRow    int       `json:"header_row"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListUploadsResponse represents one page of upload attempts
type ListUploadsResponse struct {
	Items      []UploadAuditDTO `json:"items"`
	Pagination PaginationInfo   `json:"pagination"`
}
