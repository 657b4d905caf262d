// Package domain contains the persistence model for lifecycle run history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Kind classifies a lifecycle run.
type Kind string

const (
	KindExport   Kind = "export"
	KindImport   Kind = "import"
	KindArchival Kind = "archival"
)

// ActivityLog is one immutable record of an export, import or archival run.
// Rows are appended once and never updated or deleted by the engine.
type ActivityLog struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	TenantID  snowflake.ID      `gorm:"not null;index"`
	RunID     string            `gorm:"type:text;not null"`
	Kind      Kind              `gorm:"type:text;not null;index"`
	ActorType string            `gorm:"type:text;not null"`
	ActorID   *string           `gorm:"type:text"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (ActivityLog) TableName() string { return "activity_logs" }

// HistoryEntry is an activity row joined with actor display information.
type HistoryEntry struct {
	ID               snowflake.ID   `json:"id"`
	RunID            string         `json:"run_id"`
	Kind             Kind           `json:"kind"`
	ActorType        string         `json:"actor_type"`
	ActorDisplayName string         `json:"actor_display_name,omitempty"`
	Payload          map[string]any `json:"payload"`
	CreatedAt        time.Time      `json:"created_at"`
}
