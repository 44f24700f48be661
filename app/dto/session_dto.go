package dto

import "time"

// CreateSessionResponse represents the response of opening a review session
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// LoadedTableDTO describes one reference table held by a session
type LoadedTableDTO struct {
	Kind      string    `json:"kind"`
	FileName  string    `json:"file_name"`
	Rows      int       `json:"rows"`
	HeaderRow int       `json:"header_row"`
	Columns   []string  `json:"columns"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// SessionStatusResponse represents the state of a review session
type SessionStatusResponse struct {
	SessionID        string           `json:"session_id"`
	CreatedAt        time.Time        `json:"created_at"`
	LastSeenAt       time.Time        `json:"last_seen_at"`
	Tables           []LoadedTableDTO `json:"tables"`
	MissingTables    []string         `json:"missing_tables"`
	Ready            bool             `json:"ready"`
	MasterRows       int              `json:"master_rows"`
	Assignments      int              `json:"assignments"`
	StageColumns     []string         `json:"stage_columns"`
	BuildWarnings    []string         `json:"build_warnings,omitempty"`
	SimulationTarget string           `json:"simulation_target,omitempty"`
	Version          int64            `json:"version"`
}
