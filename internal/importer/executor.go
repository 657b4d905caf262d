package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity"
	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/export"
	"github.com/bomizzel/helpdesk/internal/observability/metrics"
	"github.com/bomizzel/helpdesk/internal/principal"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExecutorParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Ledger  activity.Ledger
	Metrics *metrics.LifecycleMetrics `optional:"true"`
}

// Executor applies a snapshot document to a tenant. Sections run in a hard
// order (users, config fields, tickets) because tickets reference users
// created earlier in the same run. A failure in one item or section never
// blocks the rest.
type Executor struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	ledger  activity.Ledger
	metrics *metrics.LifecycleMetrics
}

// NewExecutor builds the import executor.
func NewExecutor(p ExecutorParams) *Executor {
	return &Executor{
		db:      p.DB,
		log:     p.Log.Named("importer"),
		genID:   p.GenID,
		ledger:  p.Ledger,
		metrics: p.Metrics,
	}
}

// Import validates and applies a raw document for the tenant. Structural
// failures short-circuit with Success=false; everything after that point
// accumulates per-item error strings instead of failing.
func (e *Executor) Import(ctx context.Context, tenantID snowflake.ID, actor principal.Principal, raw map[string]any, opts Options) Summary {
	if errs := Validate(raw); len(errs) > 0 {
		if e.metrics != nil {
			e.metrics.ObserveImport(false)
		}
		return Summary{Success: false, ValidationErrors: errs}
	}
	if opts.ValidateOnly {
		return Summary{Success: true}
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ObserveImport(false)
		}
		return Summary{Success: false, ValidationErrors: []string{fmt.Sprintf("document decode failed: %v", err)}}
	}

	summary := Summary{Success: true}
	res := newResolver(e.db)

	e.importUsers(ctx, tenantID, doc.Data.Users, opts, res, &summary)
	e.importConfigFields(ctx, tenantID, doc.Data.ConfigFields, opts, &summary)
	e.importTickets(ctx, tenantID, doc.Data.Tickets, res, &summary)

	e.ledger.Record(ctx, activitydomain.KindImport, tenantID, uuid.NewString(), actor, map[string]any{
		"users_imported":         summary.UsersImported,
		"users_skipped":          summary.UsersSkipped,
		"config_fields_imported": summary.ConfigFieldsImported,
		"config_fields_skipped":  summary.ConfigFieldsSkipped,
		"tickets_imported":       summary.TicketsImported,
		"notes_imported":         summary.NotesImported,
		"errors":                 summary.Errors,
	})
	if e.metrics != nil {
		e.metrics.ObserveImport(true)
	}
	return summary
}

func decodeDocument(raw map[string]any) (*export.Document, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc export.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (e *Executor) importUsers(ctx context.Context, tenantID snowflake.ID, users []export.UserRecord, opts Options, res *resolver, summary *Summary) {
	for i, record := range users {
		email := normalizeEmail(record.Email)
		if email == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %d: missing email", i))
			continue
		}

		var existing ticketdomain.User
		err := e.db.WithContext(ctx).
			Where("LOWER(email) = ?", email).
			Limit(1).
			Find(&existing).Error
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: lookup failed: %v", email, err))
			continue
		}

		if existing.ID != 0 {
			res.remember(email, existing.ID)
			if opts.SkipDuplicates || !opts.OverwriteExisting {
				summary.UsersSkipped++
				continue
			}
			if err := e.overwriteUser(ctx, tenantID, existing.ID, record); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: update failed: %v", email, err))
				continue
			}
			summary.UsersImported++
			continue
		}

		// Imported identities always re-verify their email locally, no
		// matter what the source document claims.
		now := time.Now().UTC()
		user := ticketdomain.User{
			ID:            e.genID.Generate(),
			Email:         email,
			DisplayName:   record.DisplayName,
			EmailVerified: false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if user.DisplayName == "" {
			user.DisplayName = email
		}
		if err := e.db.WithContext(ctx).Create(&user).Error; err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: create failed: %v", email, err))
			continue
		}
		if err := e.ensureMembership(ctx, tenantID, user.ID, record.Role); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: membership failed: %v", email, err))
		}
		res.remember(email, user.ID)
		summary.UsersImported++
	}
}

func (e *Executor) overwriteUser(ctx context.Context, tenantID, userID snowflake.ID, record export.UserRecord) error {
	displayName := record.DisplayName
	if displayName == "" {
		displayName = normalizeEmail(record.Email)
	}
	err := e.db.WithContext(ctx).Exec(
		`UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName,
		time.Now().UTC(),
		userID,
	).Error
	if err != nil {
		return err
	}
	return e.ensureMembership(ctx, tenantID, userID, record.Role)
}

func (e *Executor) ensureMembership(ctx context.Context, tenantID, userID snowflake.ID, role string) error {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&ticketdomain.TenantMember{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if role == "" {
		role = "agent"
	}
	member := ticketdomain.TenantMember{
		ID:        e.genID.Generate(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	return e.db.WithContext(ctx).Create(&member).Error
}

func (e *Executor) importConfigFields(ctx context.Context, tenantID snowflake.ID, fields []export.ConfigFieldRecord, opts Options, summary *Summary) {
	for i, record := range fields {
		if record.Name == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("config field %d: missing name", i))
			continue
		}

		var existing ticketdomain.ConfigField
		err := e.db.WithContext(ctx).
			Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, record.Name).
			Limit(1).
			Find(&existing).Error
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("config field %s: lookup failed: %v", record.Name, err))
			continue
		}

		if existing.ID != 0 {
			if opts.SkipDuplicates || !opts.OverwriteExisting {
				summary.ConfigFieldsSkipped++
				continue
			}
			err := e.db.WithContext(ctx).Exec(
				`UPDATE config_fields SET field_type = ?, required = ?, options = ?, updated_at = ? WHERE id = ?`,
				record.FieldType,
				record.Required,
				datatypes.JSON(record.Options),
				time.Now().UTC(),
				existing.ID,
			).Error
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("config field %s: update failed: %v", record.Name, err))
				continue
			}
			summary.ConfigFieldsImported++
			continue
		}

		now := time.Now().UTC()
		field := ticketdomain.ConfigField{
			ID:        e.genID.Generate(),
			TenantID:  tenantID,
			Name:      record.Name,
			FieldType: record.FieldType,
			Required:  record.Required,
			Options:   datatypes.JSON(record.Options),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if field.FieldType == "" {
			field.FieldType = "text"
		}
		if err := e.db.WithContext(ctx).Create(&field).Error; err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("config field %s: create failed: %v", record.Name, err))
			continue
		}
		summary.ConfigFieldsImported++
	}
}

func (e *Executor) importTickets(ctx context.Context, tenantID snowflake.ID, tickets []export.TicketRecord, res *resolver, summary *Summary) {
	for i, record := range tickets {
		if record.Subject == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("ticket %d: missing subject", i))
			continue
		}

		now := time.Now().UTC()
		ticket := ticketdomain.Ticket{
			ID:          e.genID.Generate(),
			TenantID:    tenantID,
			Subject:     record.Subject,
			Description: record.Description,
			Status:      ticketStatus(record.Status),
			Priority:    record.Priority,
			Archived:    record.Archived,
			CompletedAt: record.CompletedAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if ticket.Priority == "" {
			ticket.Priority = "normal"
		}
		// Unresolved references degrade to unassigned instead of
		// failing the whole ticket.
		if creatorID, ok := res.resolve(ctx, record.CreatorEmail); ok {
			ticket.CreatorID = &creatorID
		}
		if assigneeID, ok := res.resolve(ctx, record.AssigneeEmail); ok {
			ticket.AssigneeID = &assigneeID
		}

		if err := e.db.WithContext(ctx).Create(&ticket).Error; err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("ticket %q: create failed: %v", record.Subject, err))
			continue
		}
		summary.TicketsImported++

		for j, noteRecord := range record.Notes {
			note := ticketdomain.TicketNote{
				ID:        e.genID.Generate(),
				TenantID:  tenantID,
				TicketID:  ticket.ID,
				Body:      noteRecord.Body,
				Internal:  noteRecord.Internal,
				CreatedAt: now,
			}
			if authorID, ok := res.resolve(ctx, noteRecord.AuthorEmail); ok {
				note.AuthorID = &authorID
			} else {
				// Fall back to the ticket's resolved creator.
				note.AuthorID = ticket.CreatorID
			}
			if err := e.db.WithContext(ctx).Create(&note).Error; err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("ticket %q note %d: create failed: %v", record.Subject, j, err))
				continue
			}
			summary.NotesImported++
		}
	}
}

func ticketStatus(value string) ticketdomain.Status {
	status := ticketdomain.Status(value)
	switch status {
	case ticketdomain.StatusOpen, ticketdomain.StatusPending, ticketdomain.StatusResolved, ticketdomain.StatusClosed:
		return status
	default:
		return ticketdomain.StatusOpen
	}
}
