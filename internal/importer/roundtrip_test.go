package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity"
	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/export"
	"github.com/bomizzel/helpdesk/internal/principal"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openRoundTripDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&tenantdomain.Tenant{},
		&tenantdomain.Subscription{},
		&ticketdomain.User{},
		&ticketdomain.TenantMember{},
		&ticketdomain.Ticket{},
		&ticketdomain.TicketNote{},
		&ticketdomain.ConfigField{},
		&ticketdomain.Attachment{},
		&activitydomain.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// TestExportImportRoundTrip serializes a populated tenant and applies the
// document to an empty deployment, then checks the copy entity by entity.
func TestExportImportRoundTrip(t *testing.T) {
	source := openRoundTripDB(t, "source.db")
	target := openRoundTripDB(t, "target.db")
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	log := zap.NewNop()
	ctx := context.Background()

	sourceID := node.Generate()
	if err := source.Create(&tenantdomain.Tenant{ID: sourceID, Name: "Source", Slug: "source"}).Error; err != nil {
		t.Fatalf("seed source tenant: %v", err)
	}

	userIDs := make([]snowflake.ID, 0, 3)
	for i := 0; i < 3; i++ {
		user := ticketdomain.User{
			ID:          node.Generate(),
			Email:       fmt.Sprintf("user%d@source.test", i),
			DisplayName: fmt.Sprintf("User %d", i),
		}
		if err := source.Create(&user).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		member := ticketdomain.TenantMember{
			ID:       node.Generate(),
			TenantID: sourceID,
			UserID:   user.ID,
			Role:     "agent",
		}
		if err := source.Create(&member).Error; err != nil {
			t.Fatalf("seed member: %v", err)
		}
		userIDs = append(userIDs, user.ID)
	}

	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		creator := userIDs[i%3]
		assignee := userIDs[(i+1)%3]
		ticket := ticketdomain.Ticket{
			ID:         node.Generate(),
			TenantID:   sourceID,
			Subject:    fmt.Sprintf("ticket %d", i),
			Status:     ticketdomain.StatusOpen,
			Priority:   "normal",
			CreatorID:  &creator,
			AssigneeID: &assignee,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := source.Create(&ticket).Error; err != nil {
			t.Fatalf("seed ticket: %v", err)
		}
		for j := 0; j < 2; j++ {
			note := ticketdomain.TicketNote{
				ID:        node.Generate(),
				TenantID:  sourceID,
				TicketID:  ticket.ID,
				AuthorID:  &assignee,
				Body:      fmt.Sprintf("note %d/%d", i, j),
				CreatedAt: ticket.CreatedAt.Add(time.Duration(j+1) * time.Minute),
			}
			if err := source.Create(&note).Error; err != nil {
				t.Fatalf("seed note: %v", err)
			}
		}
	}

	serializer := export.NewSerializer(export.SerializerParams{
		DB:      source,
		Log:     log,
		Tenants: tenantdomain.NewRepository(source),
	})
	doc, err := serializer.Serialize(ctx, sourceID, principal.System(), export.DefaultOptions())
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}

	targetID := node.Generate()
	if err := target.Create(&tenantdomain.Tenant{ID: targetID, Name: "Target", Slug: "target"}).Error; err != nil {
		t.Fatalf("seed target tenant: %v", err)
	}

	executor := NewExecutor(ExecutorParams{
		DB:     target,
		Log:    log,
		GenID:  node,
		Ledger: activity.NewLedger(activity.Params{DB: target, Log: log, GenID: node}),
	})
	summary := executor.Import(ctx, targetID, principal.System(), raw, DefaultOptions())
	if !summary.Success {
		t.Fatalf("import failed: %+v", summary)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("import errors: %v", summary.Errors)
	}
	if summary.UsersImported != 3 || summary.UsersSkipped != 0 {
		t.Fatalf("users = %d imported, %d skipped; want 3 and 0", summary.UsersImported, summary.UsersSkipped)
	}
	if summary.TicketsImported != 5 || summary.NotesImported != 10 {
		t.Fatalf("tickets = %d, notes = %d; want 5 and 10", summary.TicketsImported, summary.NotesImported)
	}

	var memberCount int64
	if err := target.Model(&ticketdomain.TenantMember{}).Where("tenant_id = ?", targetID).Count(&memberCount).Error; err != nil {
		t.Fatalf("count members: %v", err)
	}
	if memberCount != 3 {
		t.Fatalf("target memberships = %d, want 3", memberCount)
	}

	var tickets []ticketdomain.Ticket
	if err := target.Where("tenant_id = ?", targetID).Order("subject").Find(&tickets).Error; err != nil {
		t.Fatalf("load target tickets: %v", err)
	}
	if len(tickets) != 5 {
		t.Fatalf("target tickets = %d", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.CreatorID == nil || ticket.AssigneeID == nil {
			t.Fatalf("ticket %q lost user references", ticket.Subject)
		}
		var noteCount int64
		if err := target.Model(&ticketdomain.TicketNote{}).Where("ticket_id = ?", ticket.ID).Count(&noteCount).Error; err != nil {
			t.Fatalf("count notes: %v", err)
		}
		if noteCount != 2 {
			t.Fatalf("ticket %q has %d notes, want 2", ticket.Subject, noteCount)
		}
	}
}
