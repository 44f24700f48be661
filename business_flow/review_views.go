package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/analytics"
	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/comparison"
	"github.com/gridops/loadshed-review/export"
	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/gridops/loadshed-review/utils"
)

const defaultExportSheet = "Master List"

// snapshot is an immutable view of a session taken under its lock
type snapshot struct {
	master  *masterlist.MasterList
	sim     []*models.SimulationRow
	target  models.StageKey
	version int64
}

func (s *ReviewFlowImpl) snapshot(sessionID uuid.UUID) (snapshot, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return snapshot{}, err
	}

	unlock := sess.lock()
	defer unlock()

	snap := snapshot{master: sess.master, version: sess.version}
	if sess.sim != nil {
		snap.sim = sess.sim.Rows()
		snap.target = sess.sim.Target()
	}
	if snap.master.Empty() {
		return snap, NewBusinessError("MASTER_LIST_EMPTY", "Master list is not available", ErrMasterListEmpty)
	}
	return snap, nil
}

// MasterList returns one page of the full master list
func (s *ReviewFlowImpl) MasterList(ctx context.Context, sessionID uuid.UUID, req *dto.PageRequest) (*dto.MasterListResponse, error) {
	page, pageSize, err := s.pagination(*req)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	rows := snap.master.Rows
	return &dto.MasterListResponse{
		Rows:       pageOf(rows, page, pageSize),
		StageKeys:  snap.master.StageKeys,
		Summary:    analytics.Summarize(rows),
		Pagination: paginationInfo(int64(len(rows)), page, pageSize),
	}, nil
}

// FilterView applies filter criteria and returns one page of the result with its figures
func (s *ReviewFlowImpl) FilterView(ctx context.Context, sessionID uuid.UUID, req *dto.FilterViewRequest) (*dto.FilterViewResponse, error) {
	page, pageSize, err := s.pagination(req.PageRequest)
	if err != nil {
		return nil, err
	}
	criteria, err := normalizeCriteria(req.Criteria)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	key, err := s.viewCacheKey("view", sessionID, snap.version, criteria, page, pageSize)
	if err != nil {
		return nil, err
	}

	resp, cached, err := cachedJSON(ctx, s.rc, key, s.cacheTTL(), func() (dto.FilterViewResponse, error) {
		view := analytics.Apply(analytics.NewView(snap.master), criteria)
		return dto.FilterViewResponse{
			Rows:       pageOf(view.Rows, page, pageSize),
			StageKeys:  view.StageKeys,
			Summary:    analytics.Summarize(view.Rows),
			BySchemes:  analytics.MWByScheme(view.Rows, view.StageKeys),
			Pagination: paginationInfo(int64(len(view.Rows)), page, pageSize),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	resp.Cached = cached
	return &resp, nil
}

// Aggregate sums Pload per group of a filtered view
func (s *ReviewFlowImpl) Aggregate(ctx context.Context, sessionID uuid.UUID, req *dto.AggregateRequest) (*dto.AggregateResponse, error) {
	criteria, err := normalizeCriteria(req.Criteria)
	if err != nil {
		return nil, err
	}

	groupBy, ok := models.ParseField(req.GroupBy)
	if !ok {
		return nil, NewBusinessErrorf("INVALID_GROUP_BY", "Cannot group by %q", ErrInvalidGroupBy, req.GroupBy)
	}

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	view := analytics.Apply(analytics.NewView(snap.master), criteria)

	var active *models.StageKey
	if req.ActiveColumn != "" {
		k, err := stageKeyIn(req.ActiveColumn, view.StageKeys)
		if err != nil {
			return nil, err
		}
		active = &k
	}
	var pivot *models.StageKey
	if req.PivotColumn != "" {
		k, err := stageKeyIn(req.PivotColumn, view.StageKeys)
		if err != nil {
			return nil, err
		}
		pivot = &k
	}

	key, err := s.viewCacheKey("aggregate", sessionID, snap.version, criteria, groupBy, active, pivot)
	if err != nil {
		return nil, err
	}

	resp, cached, err := cachedJSON(ctx, s.rc, key, s.cacheTTL(), func() (dto.AggregateResponse, error) {
		agg := analytics.AggregateMW(view.Rows, groupBy, active)
		out := dto.AggregateResponse{
			GroupBy:    string(groupBy),
			Groups:     make([]dto.GroupMW, 0, len(agg.Groups)),
			Unassigned: agg.Unassigned,
			Total:      agg.Total,
		}
		if active != nil {
			out.ActiveColumn = active.String()
		}
		for _, k := range agg.Keys() {
			out.Groups = append(out.Groups, dto.GroupMW{Key: k, MW: agg.Groups[k]})
		}
		if pivot != nil {
			out.Pivot = analytics.MWByZoneStage(view.Rows, *pivot)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	resp.Cached = cached
	return &resp, nil
}

// StageColumns lists the stage columns, the latest column per scheme and the stage policies
func (s *ReviewFlowImpl) StageColumns(ctx context.Context, sessionID uuid.UUID) (*dto.StageColumnsResponse, error) {
	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	keys := snap.master.StageKeys
	resp := &dto.StageColumnsResponse{
		StageKeys: keys,
		Latest:    make(map[models.Scheme]string),
		Loads:     analytics.MWByScheme(snap.master.Rows, keys),
		Policies:  make(map[models.Scheme]simulation.StagePolicy, len(models.Schemes)),
	}
	for _, scheme := range models.Schemes {
		if latest, ok := models.LatestKey(keys, scheme); ok {
			resp.Latest[scheme] = latest.String()
		}
		resp.Policies[scheme] = s.policies.For(scheme)
	}
	return resp, nil
}

// Compare labels the stage transition of every row between two columns
func (s *ReviewFlowImpl) Compare(ctx context.Context, sessionID uuid.UUID, req *dto.CompareRequest) (*dto.CompareResponse, error) {
	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	from, to, results, err := s.compare(snap, req.From, req.To, req.Criteria)
	if err != nil {
		return nil, err
	}

	tally := comparison.Tally(results)
	if req.OnlyChanged {
		results = comparison.Changed(results)
	}

	return &dto.CompareResponse{
		From:    from.String(),
		To:      to.String(),
		Results: results,
		Tally:   tally,
	}, nil
}

// compare resolves both columns against the master list and compares the rows matching the
// field and search criteria. Scheme, year and stage selections do not apply here.
func (s *ReviewFlowImpl) compare(snap snapshot, rawFrom, rawTo string, criteria analytics.Criteria) (models.StageKey, models.StageKey, []comparison.Result, error) {
	from, err := stageKeyIn(rawFrom, snap.master.StageKeys)
	if err != nil {
		return models.StageKey{}, models.StageKey{}, nil, err
	}
	to, err := stageKeyIn(rawTo, snap.master.StageKeys)
	if err != nil {
		return models.StageKey{}, models.StageKey{}, nil, err
	}
	if from == to {
		return models.StageKey{}, models.StageKey{}, nil, NewBusinessError("SAME_STAGE_COLUMNS", "Choose two different stage columns", ErrSameStageColumns)
	}

	criteria, err = normalizeCriteria(analytics.Criteria{Fields: criteria.Fields, Search: criteria.Search})
	if err != nil {
		return models.StageKey{}, models.StageKey{}, nil, err
	}
	view := analytics.Apply(analytics.NewView(snap.master), criteria)

	return from, to, comparison.Compare(view.Rows, from, to), nil
}

// Export renders the requested view as an XLSX workbook
func (s *ReviewFlowImpl) Export(ctx context.Context, sessionID uuid.UUID, req *dto.ExportRequest) (*dto.ExportResult, error) {
	filename, err := export.ValidateFilename(req.Filename)
	if err != nil {
		return nil, NewBusinessError("INVALID_EXPORT_FILENAME", err.Error(), fmt.Errorf("%w: %v", ErrInvalidExportFilename, err))
	}

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	var sheet export.Sheet
	switch req.View {
	case dto.ExportViewMaster:
		criteria, err := normalizeCriteria(req.Criteria)
		if err != nil {
			return nil, err
		}
		view := analytics.Apply(analytics.NewView(snap.master), criteria)
		sheet = export.MasterSheet(s.exportSheetName(), view.Rows, view.StageKeys)
	case dto.ExportViewSimulation:
		if snap.sim == nil {
			return nil, NewBusinessError("NO_SIMULATION", "No simulation is running", ErrNoSimulation)
		}
		sheet = export.SimulationSheet("Simulation "+snap.target.String(), snap.sim, snap.master.StageKeys, snap.target)
	case dto.ExportViewComparison:
		from, to, results, err := s.compare(snap, req.From, req.To, req.Criteria)
		if err != nil {
			return nil, err
		}
		sheet = export.ComparisonSheet(from.String()+" vs "+to.String(), results, from, to)
	default:
		return nil, NewBusinessErrorf("INVALID_EXPORT_VIEW", "Unknown export view %q", ErrInvalidExportView, req.View)
	}

	data, err := export.Write(sheet)
	if err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write workbook", err)
	}

	return &dto.ExportResult{Filename: filename, Data: data}, nil
}

func (s *ReviewFlowImpl) exportSheetName() string {
	if s.reviewConfig.ExportSheetName != "" {
		return s.reviewConfig.ExportSheetName
	}
	return defaultExportSheet
}

func (s *ReviewFlowImpl) cacheTTL() time.Duration {
	if s.cacheConfig.DefaultTTL > 0 {
		return s.cacheConfig.DefaultTTL
	}
	return utils.AnalyticsCacheTTL
}

// viewCacheKey keys a result by session, master-list version and request parameters
func (s *ReviewFlowImpl) viewCacheKey(kind string, sessionID uuid.UUID, version int64, params ...any) (string, error) {
	sum, err := digest(params)
	if err != nil {
		return "", NewBusinessError("CACHE_KEY_FAILED", "Failed to key request", err)
	}
	return redisKey(*s.cacheConfig, kind, sessionID.String(), strconv.FormatInt(version, 10), sum), nil
}

func normalizeCriteria(c analytics.Criteria) (analytics.Criteria, error) {
	out, err := c.Normalize()
	if err != nil {
		return analytics.Criteria{}, NewBusinessError("INVALID_CRITERIA", err.Error(), fmt.Errorf("%w: %v", ErrInvalidCriteria, err))
	}
	return out, nil
}

// stageKeyIn parses a column name and checks it is one of keys
func stageKeyIn(raw string, keys []models.StageKey) (models.StageKey, error) {
	k, err := models.ParseStageKey(raw)
	if err != nil {
		return models.StageKey{}, NewBusinessError("INVALID_STAGE_COLUMN", err.Error(), fmt.Errorf("%w: %v", ErrInvalidStageKey, err))
	}
	for _, have := range keys {
		if have == k {
			return k, nil
		}
	}
	return models.StageKey{}, NewBusinessErrorf("UNKNOWN_STAGE_COLUMN", "Stage column %s is not in the master list", ErrUnknownStageKey, k)
}
