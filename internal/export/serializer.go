package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bomizzel/helpdesk/internal/principal"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SerializerParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Tenants tenantdomain.Repository
}

// Serializer reads a tenant's scoped entities into a snapshot document.
// Unlike import, export is all-or-nothing: any read failure is fatal.
type Serializer struct {
	db      *gorm.DB
	log     *zap.Logger
	tenants tenantdomain.Repository
}

// NewSerializer builds the snapshot serializer.
func NewSerializer(p SerializerParams) *Serializer {
	return &Serializer{
		db:      p.DB,
		log:     p.Log.Named("export.serializer"),
		tenants: p.Tenants,
	}
}

// Serialize builds a snapshot of the tenant. Human actors must be members
// of the tenant; the system principal is exempt.
func (s *Serializer) Serialize(ctx context.Context, tenantID snowflake.ID, actor principal.Principal, opts Options) (*Document, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if actor.Kind == principal.KindUser {
		if err := s.checkMembership(ctx, tenantID, actor.UserID); err != nil {
			return nil, err
		}
	}

	doc := &Document{
		Header: Header{
			ExportID:   uuid.NewString(),
			TenantID:   tenant.ID.String(),
			TenantName: tenant.Name,
			Actor:      string(actor.Kind),
			CreatedAt:  time.Now().UTC(),
			Options:    opts,
		},
		Data: Data{
			Users:        []UserRecord{},
			Tickets:      []TicketRecord{},
			ConfigFields: []ConfigFieldRecord{},
			Attachments:  []AttachmentRecord{},
		},
	}
	if id := actor.ActorID(); id != "" {
		doc.Header.Actor = id
	}

	// The email index is built regardless of IncludeUsers: tickets and
	// notes reference users by email even when the users section is off.
	emailByUserID, members, err := s.loadUsers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if opts.IncludeUsers {
		doc.Data.Users = members
	}
	if opts.IncludeTickets {
		doc.Data.Tickets, err = s.loadTickets(ctx, tenantID, opts, emailByUserID)
		if err != nil {
			return nil, fmt.Errorf("export tickets: %w", err)
		}
	}
	if opts.IncludeConfigFields {
		doc.Data.ConfigFields, err = s.loadConfigFields(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("export config fields: %w", err)
		}
	}
	if opts.IncludeAttachments {
		doc.Data.Attachments, err = s.loadAttachments(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("export attachments: %w", err)
		}
	}
	return doc, nil
}

func (s *Serializer) checkMembership(ctx context.Context, tenantID, userID snowflake.ID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ticketdomain.TenantMember{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return tenantdomain.ErrNotMember
	}
	return nil
}

func (s *Serializer) loadUsers(ctx context.Context, tenantID snowflake.ID) (map[snowflake.ID]string, []UserRecord, error) {
	var rows []struct {
		ID            snowflake.ID
		Email         string
		DisplayName   string
		EmailVerified bool
		Role          string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT u.id, u.email, u.display_name, u.email_verified, m.role
		 FROM users u
		 JOIN tenant_members m ON m.user_id = u.id
		 WHERE m.tenant_id = ?
		 ORDER BY u.email`,
		tenantID,
	).Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	emailByUserID := make(map[snowflake.ID]string, len(rows))
	records := make([]UserRecord, 0, len(rows))
	for _, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		emailByUserID[row.ID] = email
		records = append(records, UserRecord{
			Email:         email,
			DisplayName:   row.DisplayName,
			EmailVerified: row.EmailVerified,
			Role:          row.Role,
		})
	}
	return emailByUserID, records, nil
}

func (s *Serializer) loadTickets(ctx context.Context, tenantID snowflake.ID, opts Options, emailByUserID map[snowflake.ID]string) ([]TicketRecord, error) {
	query := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC")
	if opts.DateFrom != nil {
		query = query.Where("created_at >= ?", *opts.DateFrom)
	}
	if opts.DateTo != nil {
		query = query.Where("created_at <= ?", *opts.DateTo)
	}

	var tickets []ticketdomain.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, err
	}

	var notes []ticketdomain.TicketNote
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	notesByTicket := make(map[snowflake.ID][]ticketdomain.TicketNote)
	for _, note := range notes {
		notesByTicket[note.TicketID] = append(notesByTicket[note.TicketID], note)
	}

	records := make([]TicketRecord, 0, len(tickets))
	for _, ticket := range tickets {
		record := TicketRecord{
			Subject:     ticket.Subject,
			Description: ticket.Description,
			Status:      string(ticket.Status),
			Priority:    ticket.Priority,
			Archived:    ticket.Archived,
			CreatedAt:   ticket.CreatedAt,
			CompletedAt: ticket.CompletedAt,
			Notes:       []NoteRecord{},
		}
		if ticket.CreatorID != nil {
			record.CreatorEmail = emailByUserID[*ticket.CreatorID]
		}
		if ticket.AssigneeID != nil {
			record.AssigneeEmail = emailByUserID[*ticket.AssigneeID]
		}
		for _, note := range notesByTicket[ticket.ID] {
			noteRecord := NoteRecord{
				Body:      note.Body,
				Internal:  note.Internal,
				CreatedAt: note.CreatedAt,
			}
			if note.AuthorID != nil {
				noteRecord.AuthorEmail = emailByUserID[*note.AuthorID]
			}
			record.Notes = append(record.Notes, noteRecord)
		}
		sort.SliceStable(record.Notes, func(i, j int) bool {
			return record.Notes[i].CreatedAt.Before(record.Notes[j].CreatedAt)
		})
		records = append(records, record)
	}
	return records, nil
}

func (s *Serializer) loadConfigFields(ctx context.Context, tenantID snowflake.ID) ([]ConfigFieldRecord, error) {
	var fields []ticketdomain.ConfigField
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}

	records := make([]ConfigFieldRecord, 0, len(fields))
	for _, field := range fields {
		records = append(records, ConfigFieldRecord{
			Name:      field.Name,
			FieldType: field.FieldType,
			Required:  field.Required,
			Options:   json.RawMessage(field.Options),
		})
	}
	return records, nil
}

func (s *Serializer) loadAttachments(ctx context.Context, tenantID snowflake.ID) ([]AttachmentRecord, error) {
	var attachments []ticketdomain.Attachment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}

	records := make([]AttachmentRecord, 0, len(attachments))
	for _, attachment := range attachments {
		records = append(records, AttachmentRecord{
			FileName:    attachment.FileName,
			ContentType: attachment.ContentType,
			SizeBytes:   attachment.SizeBytes,
			CreatedAt:   attachment.CreatedAt,
		})
	}
	return records, nil
}
