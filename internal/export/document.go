// Package export builds portable tenant snapshots and packages them into
// downloadable artifacts.
package export

import (
	"encoding/json"
	"time"
)

// Options selects which sections a snapshot includes. All sections are
// included unless explicitly disabled.
type Options struct {
	IncludeUsers        bool       `json:"include_users"`
	IncludeTickets      bool       `json:"include_tickets"`
	IncludeAttachments  bool       `json:"include_attachments"`
	IncludeConfigFields bool       `json:"include_config_fields"`
	DateFrom            *time.Time `json:"date_from,omitempty"`
	DateTo              *time.Time `json:"date_to,omitempty"`
}

// DefaultOptions includes every section with no date filter.
func DefaultOptions() Options {
	return Options{
		IncludeUsers:        true,
		IncludeTickets:      true,
		IncludeAttachments:  true,
		IncludeConfigFields: true,
	}
}

// Header identifies a snapshot document.
type Header struct {
	ExportID   string    `json:"export_id"`
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
	Options    Options   `json:"options"`
}

// UserRecord is the portable representation of a user. The email is the
// natural key every other section references.
type UserRecord struct {
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role,omitempty"`
}

// NoteRecord is a ticket note; the author is referenced by email.
type NoteRecord struct {
	AuthorEmail string    `json:"author_email,omitempty"`
	Body        string    `json:"body"`
	Internal    bool      `json:"internal"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketRecord is a ticket with its notes embedded inline, oldest first.
// Creator and assignee are referenced by email so the document stays
// self-contained and portable across deployments.
type TicketRecord struct {
	Subject       string       `json:"subject"`
	Description   string       `json:"description,omitempty"`
	Status        string       `json:"status"`
	Priority      string       `json:"priority"`
	CreatorEmail  string       `json:"creator_email,omitempty"`
	AssigneeEmail string       `json:"assignee_email,omitempty"`
	Archived      bool         `json:"archived"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	Notes         []NoteRecord `json:"notes"`
}

// ConfigFieldRecord is a tenant-defined custom field definition.
type ConfigFieldRecord struct {
	Name      string          `json:"name"`
	FieldType string          `json:"field_type"`
	Required  bool            `json:"required"`
	Options   json.RawMessage `json:"options,omitempty"`
}

// AttachmentRecord is attachment metadata; file bytes travel in the
// artifact, not the document.
type AttachmentRecord struct {
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Data holds the sectioned entity payload of a snapshot.
type Data struct {
	Users        []UserRecord        `json:"users"`
	Tickets      []TicketRecord      `json:"tickets"`
	ConfigFields []ConfigFieldRecord `json:"config_fields"`
	Attachments  []AttachmentRecord  `json:"attachments"`
}

// Document is a self-contained serialization of a tenant's exportable
// data. No reference inside the document points outside it.
type Document struct {
	Header Header `json:"header"`
	Data   Data   `json:"data"`
}

// Counts summarizes how many entities each section carries.
func (d *Document) Counts() map[string]int {
	return map[string]int{
		"users":         len(d.Data.Users),
		"tickets":       len(d.Data.Tickets),
		"config_fields": len(d.Data.ConfigFields),
		"attachments":   len(d.Data.Attachments),
	}
}
