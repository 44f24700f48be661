package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReferenceUpload records one reference-table upload attempt
type ReferenceUpload struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SessionID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_reference_uploads_session_id" json:"session_id"`
	Kind         string          `gorm:"size:64;not null;index:idx_reference_uploads_kind" json:"kind"`
	FileName     string          `gorm:"size:255;not null" json:"file_name"`
	RowCount     int             `gorm:"not null;default:0" json:"row_count"`
	HeaderRow    int             `gorm:"not null;default:0" json:"header_row"`
	Success      *bool           `gorm:"default:true;index:idx_reference_uploads_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_reference_uploads_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_reference_uploads_created_at" json:"created_at"`
}

func (ReferenceUpload) TableName() string {
	return "reference_uploads"
}

// ReferenceUploadFilter represents filter criteria for upload audit queries
type ReferenceUploadFilter struct {
	ID            *uint
	SessionID     *uuid.UUID
	Kind          *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (u *ReferenceUpload) IsFailed() bool {
	return u.Success != nil && !*u.Success
}
