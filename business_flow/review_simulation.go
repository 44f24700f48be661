package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/app/dto"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/simulation"
)

// StartSimulation starts (or replaces) the simulation of a target column. The target may be
// a column the master list does not carry yet, e.g. next year's review.
func (s *ReviewFlowImpl) StartSimulation(ctx context.Context, sessionID uuid.UUID, req *dto.StartSimulationRequest) (*dto.SimulationResponse, error) {
	target, err := models.ParseStageKey(req.Target)
	if err != nil {
		return nil, NewBusinessError("INVALID_STAGE_COLUMN", err.Error(), fmt.Errorf("%w: %v", ErrInvalidStageKey, err))
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	defer unlock()

	if sess.master.Empty() {
		return nil, NewBusinessError("MASTER_LIST_EMPTY", "Master list is not available", ErrMasterListEmpty)
	}

	sess.sim = simulation.NewSimulator(sess.master, target, s.policies)
	resp := simulationResponse(sess.sim, sess.master.StageKeys, false)
	return &resp, nil
}

// ApplyEdits applies simulated stages and recomputes every flag
func (s *ReviewFlowImpl) ApplyEdits(ctx context.Context, sessionID uuid.UUID, req *dto.ApplyEditsRequest) (*dto.ApplyEditsResponse, error) {
	if len(req.Edits) == 0 {
		return nil, NewBusinessError("NO_EDITS", "At least one edit is required", ErrNoEdits)
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	defer unlock()

	if sess.sim == nil {
		return nil, NewBusinessError("NO_SIMULATION", "No simulation is running", ErrNoSimulation)
	}

	changes, err := sess.sim.Apply(req.Edits)
	if err != nil {
		if errors.Is(err, simulation.ErrUnknownAssignment) {
			return nil, NewBusinessError("UNKNOWN_ASSIGNMENT", err.Error(), fmt.Errorf("%w: %v", ErrUnknownAssignment, err))
		}
		return nil, NewBusinessError("SIMULATION_EDIT_FAILED", "Failed to apply edits", err)
	}

	resp := simulationResponse(sess.sim, sess.master.StageKeys, false)
	countRaisedFlags(resp.Rows, changes)

	if changes == nil {
		changes = []simulation.Change{}
	}
	return &dto.ApplyEditsResponse{Changes: changes, SimulationResponse: resp}, nil
}

// ResetSimulation restores the grid to its state when the simulation started
func (s *ReviewFlowImpl) ResetSimulation(ctx context.Context, sessionID uuid.UUID) (*dto.SimulationResponse, error) {
	return s.withSimulation(sessionID, func(sim *simulation.Simulator) { sim.Reset() })
}

// ClearSimulation removes every simulated stage
func (s *ReviewFlowImpl) ClearSimulation(ctx context.Context, sessionID uuid.UUID) (*dto.SimulationResponse, error) {
	return s.withSimulation(sessionID, func(sim *simulation.Simulator) { sim.Clear() })
}

// GetSimulation returns the current grid
func (s *ReviewFlowImpl) GetSimulation(ctx context.Context, sessionID uuid.UUID, query *dto.SimulationQuery) (*dto.SimulationResponse, error) {
	onlyFlagged := query != nil && query.OnlyFlagged

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	defer unlock()

	if sess.sim == nil {
		return nil, NewBusinessError("NO_SIMULATION", "No simulation is running", ErrNoSimulation)
	}
	resp := simulationResponse(sess.sim, sess.master.StageKeys, onlyFlagged)
	return &resp, nil
}

func (s *ReviewFlowImpl) withSimulation(sessionID uuid.UUID, fn func(sim *simulation.Simulator)) (*dto.SimulationResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	defer unlock()

	if sess.sim == nil {
		return nil, NewBusinessError("NO_SIMULATION", "No simulation is running", ErrNoSimulation)
	}
	fn(sess.sim)
	resp := simulationResponse(sess.sim, sess.master.StageKeys, false)
	return &resp, nil
}

// SaveSimulation persists the current grid
func (s *ReviewFlowImpl) SaveSimulation(ctx context.Context, sessionID uuid.UUID, req *dto.SaveSimulationRequest) (*dto.SavedSimulationDTO, error) {
	if s.saveRepo == nil {
		return nil, NewBusinessError("PERSISTENCE_UNAVAILABLE", "Saving simulations is not enabled", ErrPersistenceUnavailable)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("SIMULATION_NAME_REQUIRED", "Simulation name is required", ErrSimulationNameEmpty)
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.lock()
	if sess.sim == nil {
		unlock()
		return nil, NewBusinessError("NO_SIMULATION", "No simulation is running", ErrNoSimulation)
	}
	target := sess.sim.Target()
	rows := sess.sim.Rows()
	summary := sess.sim.Summary()
	keys := append([]models.StageKey(nil), sess.master.StageKeys...)
	version := sess.version
	unlock()

	meta, err := json.Marshal(map[string]any{
		"stage_keys":      keys,
		"policy":          s.policies.For(target.Scheme),
		"session_version": version,
		"simulated_rows":  summary.Simulated,
	})
	if err != nil {
		return nil, NewBusinessError("SIMULATION_SAVE_FAILED", "Failed to encode simulation metadata", err)
	}

	save := &models.SimulationSave{
		UUID:         uuid.New(),
		SessionID:    sessionID,
		Name:         name,
		TargetColumn: target.String(),
		RowCount:     summary.Rows,
		WarningCount: summary.Warnings,
		AlertCount:   summary.Alerts,
		SimulatedMW:  summary.SimulatedMW,
		Metadata:     meta,
		Rows:         make([]models.SimulationSaveRow, 0, len(rows)),
	}
	for _, r := range rows {
		save.Rows = append(save.Rows, models.SimulationSaveRow{
			AssignmentID:       r.AssignmentID,
			SimStage:           string(r.SimStage),
			Flag:               string(r.Flag),
			ConflictAssignment: r.ConflictAssignment,
			PloadMW:            r.PloadMW,
			Critical:           r.Critical,
		})
	}

	if err := s.saveRepo.SaveWithRows(ctx, save); err != nil {
		return nil, NewBusinessError("SIMULATION_SAVE_FAILED", "Failed to save simulation", err)
	}

	out := toSavedSimulationDTO(save)
	return &out, nil
}

// ListSavedSimulations lists saved simulations of the session, or of every session
func (s *ReviewFlowImpl) ListSavedSimulations(ctx context.Context, sessionID uuid.UUID, req *dto.ListSavedSimulationsRequest) (*dto.ListSavedSimulationsResponse, error) {
	if s.saveRepo == nil {
		return nil, NewBusinessError("PERSISTENCE_UNAVAILABLE", "Saving simulations is not enabled", ErrPersistenceUnavailable)
	}

	page, pageSize, err := s.pagination(req.PageRequest)
	if err != nil {
		return nil, err
	}

	filter := models.SimulationSaveFilter{}
	if !req.AllSessions {
		filter.SessionID = &sessionID
	}
	if req.TargetColumn != "" {
		target, err := models.ParseStageKey(req.TargetColumn)
		if err != nil {
			return nil, NewBusinessError("INVALID_STAGE_COLUMN", err.Error(), fmt.Errorf("%w: %v", ErrInvalidStageKey, err))
		}
		column := target.String()
		filter.TargetColumn = &column
	}

	total, err := s.saveRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SIMULATION_LIST_FAILED", "Failed to count saved simulations", err)
	}
	saves, err := s.saveRepo.ByFilter(ctx, filter, "", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SIMULATION_LIST_FAILED", "Failed to list saved simulations", err)
	}

	items := make([]dto.SavedSimulationDTO, 0, len(saves))
	for _, sv := range saves {
		items = append(items, toSavedSimulationDTO(sv))
	}

	return &dto.ListSavedSimulationsResponse{Items: items, Pagination: paginationInfo(total, page, pageSize)}, nil
}

// GetSavedSimulation returns a saved simulation with its rows
func (s *ReviewFlowImpl) GetSavedSimulation(ctx context.Context, id string) (*dto.SavedSimulationDetail, error) {
	if s.saveRepo == nil {
		return nil, NewBusinessError("PERSISTENCE_UNAVAILABLE", "Saving simulations is not enabled", ErrPersistenceUnavailable)
	}

	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, NewBusinessError("SIMULATION_NOT_FOUND", "Saved simulation not found", ErrSimulationNotFound)
	}

	save, err := s.saveRepo.ByUUID(ctx, parsed)
	if err != nil {
		return nil, NewBusinessError("SIMULATION_LOOKUP_FAILED", "Failed to load saved simulation", err)
	}
	if save == nil {
		return nil, NewBusinessError("SIMULATION_NOT_FOUND", "Saved simulation not found", ErrSimulationNotFound)
	}

	return &dto.SavedSimulationDetail{
		SavedSimulationDTO: toSavedSimulationDTO(save),
		Rows:               save.Rows,
	}, nil
}

func simulationResponse(sim *simulation.Simulator, keys []models.StageKey, onlyFlagged bool) dto.SimulationResponse {
	rows := sim.Rows()
	if onlyFlagged {
		flagged := rows[:0]
		for _, r := range rows {
			if r.Flag != models.FlagOK {
				flagged = append(flagged, r)
			}
		}
		rows = flagged
	}
	return dto.SimulationResponse{
		Target:    sim.Target().String(),
		StageKeys: keys,
		Summary:   sim.Summary(),
		Rows:      rows,
	}
}

// countRaisedFlags records the flag each edited row ended up with
func countRaisedFlags(rows []*models.SimulationRow, changes []simulation.Change) {
	if len(changes) == 0 {
		return
	}
	byID := make(map[string]models.Flag, len(rows))
	for _, r := range rows {
		byID[r.AssignmentID] = r.Flag
	}
	for _, c := range changes {
		if flag, ok := byID[c.AssignmentID]; ok && flag != models.FlagOK {
			simulationFlags.WithLabelValues(string(flag)).Inc()
		}
	}
}

func toSavedSimulationDTO(s *models.SimulationSave) dto.SavedSimulationDTO {
	return dto.SavedSimulationDTO{
		UUID:         s.UUID.String(),
		SessionID:    s.SessionID.String(),
		Name:         s.Name,
		TargetColumn: s.TargetColumn,
		RowCount:     s.RowCount,
		WarningCount: s.WarningCount,
		AlertCount:   s.AlertCount,
		SimulatedMW:  s.SimulatedMW,
		CreatedAt:    s.CreatedAt,
	}
}
