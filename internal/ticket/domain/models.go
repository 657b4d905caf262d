// Package domain contains persistence models for tickets and the entities
// the lifecycle engine snapshots alongside them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is a ticket lifecycle status.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// TerminalStatuses are the statuses a ticket does not transition out of.
// Only terminal tickets are archival candidates.
var TerminalStatuses = []Status{StatusResolved, StatusClosed}

// IsTerminal reports whether the status is in the terminal set.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// Ticket is a support request scoped to a tenant.
type Ticket struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    snowflake.ID `gorm:"not null;index"`
	Subject     string       `gorm:"type:text;not null"`
	Description string       `gorm:"type:text"`
	Status      Status       `gorm:"type:text;not null;default:open;index"`
	Priority    string       `gorm:"type:text;not null;default:normal"`

	// CreatorID and AssigneeID are nullable: imported tickets whose
	// referenced users cannot be resolved degrade to unassigned.
	CreatorID  *snowflake.ID `gorm:"index"`
	AssigneeID *snowflake.ID `gorm:"index"`

	Archived    bool       `gorm:"not null;default:false;index"`
	CompletedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "tickets" }

// TicketNote is a comment attached to a ticket.
type TicketNote struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;index"`
	TicketID  snowflake.ID `gorm:"not null;index"`
	AuthorID  *snowflake.ID
	Body      string    `gorm:"type:text;not null"`
	Internal  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TicketNote) TableName() string { return "ticket_notes" }

// User is an account that may belong to several tenants.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Email         string       `gorm:"type:text;not null;uniqueIndex"`
	DisplayName   string       `gorm:"type:text;not null"`
	EmailVerified bool         `gorm:"not null;default:false"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// TenantMember links a user to a tenant with a role.
type TenantMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;uniqueIndex:ux_tenant_members,priority:1"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_tenant_members,priority:2"`
	Role      string       `gorm:"type:text;not null;default:agent"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TenantMember) TableName() string { return "tenant_members" }

// ConfigField is a tenant-defined custom field on tickets.
type ConfigField struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	TenantID  snowflake.ID   `gorm:"not null;uniqueIndex:ux_config_fields,priority:1"`
	Name      string         `gorm:"type:text;not null;uniqueIndex:ux_config_fields,priority:2"`
	FieldType string         `gorm:"type:text;not null;default:text"`
	Required  bool           `gorm:"not null;default:false"`
	Options   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ConfigField) TableName() string { return "config_fields" }

// Attachment stores metadata for a file uploaded to a ticket. The bytes
// themselves live on disk under StoragePath; upload handling is external.
type Attachment struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	TenantID    snowflake.ID  `gorm:"not null;index"`
	TicketID    *snowflake.ID `gorm:"index"`
	FileName    string        `gorm:"type:text;not null"`
	ContentType string        `gorm:"type:text"`
	SizeBytes   int64         `gorm:"not null;default:0"`
	StoragePath string        `gorm:"type:text"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Attachment) TableName() string { return "attachments" }

// TicketEvent is one audit trail row on a ticket (status change, archival).
// Appended by collaborators, never rewritten.
type TicketEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;index"`
	TicketID  snowflake.ID `gorm:"not null;index"`
	Action    string       `gorm:"type:text;not null"`
	ActorType string       `gorm:"type:text;not null"`
	ActorID   *string      `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TicketEvent) TableName() string { return "ticket_events" }
