package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/app/services"
	"github.com/gridops/loadshed-review/config"
	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/refdata"
	"github.com/gridops/loadshed-review/repository"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/gridops/loadshed-review/utils"
	"github.com/redis/go-redis/v9"
)

// ReviewFlow handles the load-shedding review use cases of one session
type ReviewFlow interface {
	CreateSession(ctx context.Context, metadata *ClientMetadata) (*dto.CreateSessionResponse, error)
	SessionStatus(ctx context.Context, sessionID uuid.UUID) (*dto.SessionStatusResponse, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID, token string) error

	UploadTable(ctx context.Context, sessionID uuid.UUID, req *dto.UploadTableRequest, metadata *ClientMetadata) (*dto.UploadTableResponse, error)
	RemoveTable(ctx context.Context, sessionID uuid.UUID, kind string) (*dto.SessionStatusResponse, error)
	ListUploads(ctx context.Context, sessionID uuid.UUID, req *dto.ListUploadsRequest) (*dto.ListUploadsResponse, error)

	MasterList(ctx context.Context, sessionID uuid.UUID, req *dto.PageRequest) (*dto.MasterListResponse, error)
	FilterView(ctx context.Context, sessionID uuid.UUID, req *dto.FilterViewRequest) (*dto.FilterViewResponse, error)
	Aggregate(ctx context.Context, sessionID uuid.UUID, req *dto.AggregateRequest) (*dto.AggregateResponse, error)
	StageColumns(ctx context.Context, sessionID uuid.UUID) (*dto.StageColumnsResponse, error)

	StartSimulation(ctx context.Context, sessionID uuid.UUID, req *dto.StartSimulationRequest) (*dto.SimulationResponse, error)
	ApplyEdits(ctx context.Context, sessionID uuid.UUID, req *dto.ApplyEditsRequest) (*dto.ApplyEditsResponse, error)
	ResetSimulation(ctx context.Context, sessionID uuid.UUID) (*dto.SimulationResponse, error)
	ClearSimulation(ctx context.Context, sessionID uuid.UUID) (*dto.SimulationResponse, error)
	GetSimulation(ctx context.Context, sessionID uuid.UUID, query *dto.SimulationQuery) (*dto.SimulationResponse, error)
	SaveSimulation(ctx context.Context, sessionID uuid.UUID, req *dto.SaveSimulationRequest) (*dto.SavedSimulationDTO, error)
	ListSavedSimulations(ctx context.Context, sessionID uuid.UUID, req *dto.ListSavedSimulationsRequest) (*dto.ListSavedSimulationsResponse, error)
	GetSavedSimulation(ctx context.Context, id string) (*dto.SavedSimulationDetail, error)

	Compare(ctx context.Context, sessionID uuid.UUID, req *dto.CompareRequest) (*dto.CompareResponse, error)
	Export(ctx context.Context, sessionID uuid.UUID, req *dto.ExportRequest) (*dto.ExportResult, error)
}

// ReviewFlowImpl implements the review business flow
type ReviewFlowImpl struct {
	store        *SessionStore
	tokenService services.TokenService
	loader       *refdata.Loader
	builder      *masterlist.Builder
	policies     simulation.Policies
	saveRepo     repository.SimulationSaveRepository
	uploadRepo   repository.ReferenceUploadRepository
	reviewConfig config.ReviewConfig
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
}

// NewReviewFlow creates a new review flow instance. saveRepo and uploadRepo may be nil when
// persistence is disabled; rc may be nil when the cache is disabled.
func NewReviewFlow(
	store *SessionStore,
	tokenService services.TokenService,
	rules *config.Rules,
	saveRepo repository.SimulationSaveRepository,
	uploadRepo repository.ReferenceUploadRepository,
	rc *redis.Client,
	reviewConfig config.ReviewConfig,
	cacheConfig *config.CacheConfig,
) ReviewFlow {
	if rules == nil {
		rules = &config.Rules{}
	}
	if cacheConfig == nil {
		cacheConfig = &config.CacheConfig{}
	}
	return &ReviewFlowImpl{
		store:        store,
		tokenService: tokenService,
		loader:       refdata.NewLoader(reviewConfig.HeaderProbeRows),
		builder:      masterlist.NewBuilder(rules.Mapper()),
		policies:     rules.Policies(),
		saveRepo:     saveRepo,
		uploadRepo:   uploadRepo,
		reviewConfig: reviewConfig,
		cacheConfig:  cacheConfig,
		rc:           rc,
	}
}

// CreateSession opens a review session and issues its token
func (s *ReviewFlowImpl) CreateSession(ctx context.Context, metadata *ClientMetadata) (*dto.CreateSessionResponse, error) {
	sess, err := s.store.Create()
	if err != nil {
		return nil, NewBusinessError("SESSION_CREATION_FAILED", "Failed to open review session", err)
	}

	token, claims, err := s.tokenService.GenerateSessionToken(sess.ID)
	if err != nil {
		s.store.Delete(sess.ID)
		return nil, NewBusinessError("SESSION_TOKEN_FAILED", "Failed to issue session token", err)
	}

	if metadata != nil {
		log.Printf("Review session %s opened from %s", sess.ID, metadata.IPAddress)
	}

	return &dto.CreateSessionResponse{
		SessionID: sess.ID.String(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: sess.CreatedAt,
	}, nil
}

// SessionStatus reports what a session holds
func (s *ReviewFlowImpl) SessionStatus(ctx context.Context, sessionID uuid.UUID) (*dto.SessionStatusResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	defer unlock()

	status := s.statusLocked(sess)
	return &status, nil
}

// CloseSession drops a session and revokes its token
func (s *ReviewFlowImpl) CloseSession(ctx context.Context, sessionID uuid.UUID, token string) error {
	if !s.store.Delete(sessionID) {
		return ErrSessionNotFound
	}
	if token != "" {
		if err := s.tokenService.RevokeToken(token); err != nil {
			log.Printf("Session token revocation failed: %v", err)
		}
	}
	return nil
}

// UploadTable loads a reference table into the session and rebuilds the master list
func (s *ReviewFlowImpl) UploadTable(ctx context.Context, sessionID uuid.UUID, req *dto.UploadTableRequest, metadata *ClientMetadata) (*dto.UploadTableResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	kind, err := refdata.ParseKind(req.Kind)
	if err != nil {
		return nil, NewBusinessError("INVALID_TABLE_KIND", "Invalid reference table kind", fmt.Errorf("%w: %v", ErrInvalidTableKind, err))
	}
	if len(req.Data) == 0 {
		return nil, NewBusinessError("FILE_REQUIRED", "File is required", ErrFileRequired)
	}
	if limit := s.reviewConfig.MaxUploadBytes; limit > 0 && len(req.Data) > limit {
		return nil, NewBusinessErrorf("FILE_TOO_LARGE", "File exceeds %d bytes", ErrFileTooLarge, limit)
	}

	table, err := s.loader.Read(bytes.NewReader(req.Data), req.FileName, kind)
	if err != nil {
		tableUploads.WithLabelValues(string(kind), "failed").Inc()
		s.recordUpload(ctx, sessionID, kind, req.FileName, nil, err, metadata)
		return nil, NewBusinessError(readErrorCode(err), "Failed to read reference table", err)
	}

	unlock := sess.lock()
	sess.tables[kind] = &loadedTable{table: table, loadedAt: utils.UTCNow()}
	discarded := s.rebuildLocked(sess)
	status := s.statusLocked(sess)
	loaded := toLoadedTableDTO(kind, sess.tables[kind])
	unlock()

	tableUploads.WithLabelValues(string(kind), "success").Inc()
	s.recordUpload(ctx, sessionID, kind, req.FileName, table, nil, metadata)

	return &dto.UploadTableResponse{
		Table:               loaded,
		Status:              status,
		SimulationDiscarded: discarded,
	}, nil
}

// RemoveTable unloads a reference table and rebuilds the master list
func (s *ReviewFlowImpl) RemoveTable(ctx context.Context, sessionID uuid.UUID, kind string) (*dto.SessionStatusResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	k, err := refdata.ParseKind(kind)
	if err != nil {
		return nil, NewBusinessError("INVALID_TABLE_KIND", "Invalid reference table kind", fmt.Errorf("%w: %v", ErrInvalidTableKind, err))
	}

	unlock := sess.lock()
	defer unlock()

	if _, ok := sess.tables[k]; !ok {
		return nil, NewBusinessErrorf("TABLE_NOT_LOADED", "Reference table %s is not loaded", ErrTableNotLoaded, k)
	}
	delete(sess.tables, k)
	s.rebuildLocked(sess)

	status := s.statusLocked(sess)
	return &status, nil
}

// ListUploads returns the recorded upload attempts of a session
func (s *ReviewFlowImpl) ListUploads(ctx context.Context, sessionID uuid.UUID, req *dto.ListUploadsRequest) (*dto.ListUploadsResponse, error) {
	if _, err := s.store.Get(sessionID); err != nil {
		return nil, err
	}
	if s.uploadRepo == nil {
		return nil, NewBusinessError("PERSISTENCE_UNAVAILABLE", "Upload history is not enabled", ErrPersistenceUnavailable)
	}

	page, pageSize, err := s.pagination(req.PageRequest)
	if err != nil {
		return nil, err
	}

	filter := models.ReferenceUploadFilter{SessionID: &sessionID}
	if req.FailedOnly {
		filter.Success = utils.ToPtr(false)
	}

	total, err := s.uploadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LIST_FAILED", "Failed to count uploads", err)
	}
	uploads, err := s.uploadRepo.ByFilter(ctx, filter, "", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LIST_FAILED", "Failed to list uploads", err)
	}

	items := make([]dto.UploadAuditDTO, 0, len(uploads))
	for _, u := range uploads {
		item := dto.UploadAuditDTO{
			Kind:      u.Kind,
			FileName:  u.FileName,
			RowCount:  u.RowCount,
			HeaderRow: u.HeaderRow,
			Success:   !u.IsFailed(),
			CreatedAt: u.CreatedAt,
		}
		if u.ErrorMessage != nil {
			item.ErrorMessage = *u.ErrorMessage
		}
		if u.RequestID != nil {
			item.RequestID = *u.RequestID
		}
		items = append(items, item)
	}

	return &dto.ListUploadsResponse{Items: items, Pagination: paginationInfo(total, page, pageSize)}, nil
}

// rebuildLocked rebuilds the master list from the loaded tables. The running simulation is
// dropped because its rows no longer match; the return value reports whether one existed.
func (s *ReviewFlowImpl) rebuildLocked(sess *Session) bool {
	tables := make(map[refdata.Kind]*refdata.Table, len(sess.tables))
	for k, lt := range sess.tables {
		tables[k] = lt.table
	}

	in, errs := masterlist.FromTables(tables)
	sess.warnings = sess.warnings[:0]
	for _, err := range errs {
		sess.warnings = append(sess.warnings, err.Error())
	}

	if in.Ready() {
		sess.master = s.builder.Build(in)
		masterListBuilds.Observe(float64(len(sess.master.Rows)))
	} else {
		sess.master = nil
	}

	sess.version++
	discarded := sess.sim != nil
	sess.sim = nil
	return discarded
}

func readErrorCode(err error) string {
	switch {
	case refdata.IsHeaderError(err):
		return "HEADER_NOT_FOUND"
	case errors.Is(err, refdata.ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, refdata.ErrSchemaMismatch):
		return "SCHEMA_MISMATCH"
	default:
		return "TABLE_READ_FAILED"
	}
}

func (s *ReviewFlowImpl) statusLocked(sess *Session) dto.SessionStatusResponse {
	status := dto.SessionStatusResponse{
		SessionID:     sess.ID.String(),
		CreatedAt:     sess.CreatedAt,
		LastSeenAt:    sess.lastSeen,
		Tables:        []dto.LoadedTableDTO{},
		MissingTables: []string{},
		StageColumns:  []string{},
		BuildWarnings: append([]string(nil), sess.warnings...),
		Version:       sess.version,
	}

	for _, k := range refdata.Kinds {
		lt, ok := sess.tables[k]
		if !ok {
			status.MissingTables = append(status.MissingTables, string(k))
			continue
		}
		status.Tables = append(status.Tables, toLoadedTableDTO(k, lt))
	}

	if !sess.master.Empty() {
		status.Ready = true
		status.MasterRows = len(sess.master.Rows)
		status.Assignments = sess.master.AssignmentCount()
		for _, k := range sess.master.StageKeys {
			status.StageColumns = append(status.StageColumns, k.String())
		}
	}
	if sess.sim != nil {
		status.SimulationTarget = sess.sim.Target().String()
	}
	return status
}

func toLoadedTableDTO(kind refdata.Kind, lt *loadedTable) dto.LoadedTableDTO {
	return dto.LoadedTableDTO{
		Kind:      string(kind),
		FileName:  lt.table.Name,
		Rows:      lt.table.Len(),
		HeaderRow: lt.table.HeaderRow,
		Columns:   append([]string(nil), lt.table.Columns...),
		LoadedAt:  lt.loadedAt,
	}
}

// recordUpload writes the upload audit entry. Failures are logged and never fail the upload.
func (s *ReviewFlowImpl) recordUpload(ctx context.Context, sessionID uuid.UUID, kind refdata.Kind, fileName string, table *refdata.Table, uploadErr error, metadata *ClientMetadata) {
	if s.uploadRepo == nil {
		return
	}

	entry := &models.ReferenceUpload{
		SessionID: sessionID,
		Kind:      string(kind),
		FileName:  fileName,
		Success:   utils.ToPtr(uploadErr == nil),
		RequestID: requestIDFrom(ctx),
	}
	if table != nil {
		entry.RowCount = table.Len()
		entry.HeaderRow = table.HeaderRow
	}
	if uploadErr != nil {
		entry.ErrorMessage = utils.ToPtr(uploadErr.Error())
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}

	if err := s.uploadRepo.Save(ctx, entry); err != nil {
		log.Printf("Upload audit failed: %v", err)
	}
}

// pagination resolves page parameters against the configured bounds
func (s *ReviewFlowImpl) pagination(req dto.PageRequest) (int, int, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 0 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 0 || (s.reviewConfig.MaxPageSize > 0 && pageSize > s.reviewConfig.MaxPageSize) {
		return 0, 0, ErrInvalidPageSize
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = s.reviewConfig.DefaultPageSize
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return page, pageSize, nil
}

func paginationInfo(total int64, page, pageSize int) dto.PaginationInfo {
	return dto.PaginationInfo{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}

// pageOf returns the rows of one page
func pageOf[T any](rows []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []T{}
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
