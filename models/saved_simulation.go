package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SimulationSave is an explicitly saved simulator snapshot
type SimulationSave struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_simulation_saves_uuid" json:"uuid"`
	SessionID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_simulation_saves_session_id" json:"session_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	TargetColumn string          `gorm:"size:64;not null;index:idx_simulation_saves_target" json:"target_column"`
	RowCount     int             `gorm:"not null;default:0" json:"row_count"`
	WarningCount int             `gorm:"not null;default:0" json:"warning_count"`
	AlertCount   int             `gorm:"not null;default:0" json:"alert_count"`
	SimulatedMW  decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"simulated_mw"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_simulation_saves_created_at" json:"created_at"`

	Rows []SimulationSaveRow `gorm:"foreignKey:SaveID;constraint:OnDelete:CASCADE" json:"rows,omitempty"`
}

func (SimulationSave) TableName() string {
	return "simulation_saves"
}

// BeforeCreate ensures UUID is set
func (s *SimulationSave) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	return nil
}

// SimulationSaveRow is one assignment of a saved snapshot
type SimulationSaveRow struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	SaveID             uint            `gorm:"not null;index:idx_simulation_save_rows_save_id" json:"save_id"`
	AssignmentID       string          `gorm:"size:128;not null" json:"assignment_id"`
	SimStage           string          `gorm:"size:32" json:"sim_stage,omitempty"`
	Flag               string          `gorm:"size:16;not null" json:"flag"`
	ConflictAssignment string          `gorm:"type:text" json:"conflict_assignment,omitempty"`
	PloadMW            decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"pload_mw"`
	Critical           bool            `gorm:"not null;default:false" json:"critical_list"`
}

func (SimulationSaveRow) TableName() string {
	return "simulation_save_rows"
}

// SimulationSaveFilter represents filter criteria for saved simulation queries
type SimulationSaveFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	SessionID     *uuid.UUID
	TargetColumn  *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
