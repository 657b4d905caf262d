package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bomizzel/helpdesk/internal/principal"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type serializerFixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	serializer *Serializer
	tenantID   snowflake.ID
	adminID    snowflake.ID
}

func setupSerializerTest(t *testing.T) *serializerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
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
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f := &serializerFixture{
		db:   db,
		node: node,
		serializer: NewSerializer(SerializerParams{
			DB:      db,
			Log:     zap.NewNop(),
			Tenants: tenantdomain.NewRepository(db),
		}),
		tenantID: node.Generate(),
	}
	if err := db.Create(&tenantdomain.Tenant{ID: f.tenantID, Name: "Acme", Slug: "acme"}).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	f.adminID = f.seedUser(t, "Admin@Acme.Test", "Admin", "admin")
	return f
}

func (f *serializerFixture) seedUser(t *testing.T, email, name, role string) snowflake.ID {
	t.Helper()
	user := ticketdomain.User{ID: f.node.Generate(), Email: email, DisplayName: name}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	member := ticketdomain.TenantMember{
		ID:       f.node.Generate(),
		TenantID: f.tenantID,
		UserID:   user.ID,
		Role:     role,
	}
	if err := f.db.Create(&member).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return user.ID
}

func TestSerializeDocumentShape(t *testing.T) {
	f := setupSerializerTest(t)
	agentID := f.seedUser(t, "agent@acme.test", "Agent", "agent")

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := ticketdomain.Ticket{
		ID:         f.node.Generate(),
		TenantID:   f.tenantID,
		Subject:    "printer on fire",
		Status:     ticketdomain.StatusOpen,
		Priority:   "high",
		CreatorID:  &f.adminID,
		AssigneeID: &agentID,
		CreatedAt:  created,
	}
	if err := f.db.Create(&ticket).Error; err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	// Notes inserted newest-first to prove the document reorders them.
	for i, offset := range []time.Duration{2 * time.Hour, time.Hour} {
		note := ticketdomain.TicketNote{
			ID:        f.node.Generate(),
			TenantID:  f.tenantID,
			TicketID:  ticket.ID,
			AuthorID:  &agentID,
			Body:      "note",
			Internal:  i == 0,
			CreatedAt: created.Add(offset),
		}
		if err := f.db.Create(&note).Error; err != nil {
			t.Fatalf("seed note: %v", err)
		}
	}
	field := ticketdomain.ConfigField{
		ID:        f.node.Generate(),
		TenantID:  f.tenantID,
		Name:      "severity",
		FieldType: "select",
		Required:  true,
		Options:   []byte(`["low","high"]`),
	}
	if err := f.db.Create(&field).Error; err != nil {
		t.Fatalf("seed config field: %v", err)
	}

	doc, err := f.serializer.Serialize(context.Background(), f.tenantID, principal.ForUser(f.adminID, "admin"), DefaultOptions())
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if doc.Header.ExportID == "" {
		t.Fatal("missing export id")
	}
	if doc.Header.TenantID != f.tenantID.String() || doc.Header.TenantName != "Acme" {
		t.Fatalf("header tenant = %q %q", doc.Header.TenantID, doc.Header.TenantName)
	}
	if doc.Header.Actor != f.adminID.String() {
		t.Fatalf("header actor = %q", doc.Header.Actor)
	}

	if len(doc.Data.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(doc.Data.Users))
	}
	// Emails are lowercased natural keys, sorted.
	if doc.Data.Users[0].Email != "admin@acme.test" || doc.Data.Users[1].Email != "agent@acme.test" {
		t.Fatalf("user emails = %q, %q", doc.Data.Users[0].Email, doc.Data.Users[1].Email)
	}
	if doc.Data.Users[0].Role != "admin" {
		t.Fatalf("user role = %q", doc.Data.Users[0].Role)
	}

	if len(doc.Data.Tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(doc.Data.Tickets))
	}
	exported := doc.Data.Tickets[0]
	if exported.CreatorEmail != "admin@acme.test" || exported.AssigneeEmail != "agent@acme.test" {
		t.Fatalf("ticket refs = %q, %q", exported.CreatorEmail, exported.AssigneeEmail)
	}
	if len(exported.Notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(exported.Notes))
	}
	if !exported.Notes[0].CreatedAt.Before(exported.Notes[1].CreatedAt) {
		t.Fatal("notes not ordered oldest first")
	}
	if exported.Notes[0].AuthorEmail != "agent@acme.test" {
		t.Fatalf("note author = %q", exported.Notes[0].AuthorEmail)
	}

	if len(doc.Data.ConfigFields) != 1 || doc.Data.ConfigFields[0].Name != "severity" {
		t.Fatalf("config fields = %+v", doc.Data.ConfigFields)
	}

	counts := doc.Counts()
	if counts["users"] != 2 || counts["tickets"] != 1 || counts["config_fields"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestSerializeSectionToggles(t *testing.T) {
	f := setupSerializerTest(t)
	ticket := ticketdomain.Ticket{
		ID:        f.node.Generate(),
		TenantID:  f.tenantID,
		Subject:   "subject",
		Status:    ticketdomain.StatusOpen,
		Priority:  "normal",
		CreatorID: &f.adminID,
	}
	if err := f.db.Create(&ticket).Error; err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	opts := DefaultOptions()
	opts.IncludeUsers = false
	doc, err := f.serializer.Serialize(context.Background(), f.tenantID, principal.System(), opts)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(doc.Data.Users) != 0 {
		t.Fatalf("users section not empty: %d", len(doc.Data.Users))
	}
	// User references inside tickets survive even with the section off.
	if doc.Data.Tickets[0].CreatorEmail != "admin@acme.test" {
		t.Fatalf("creator email = %q", doc.Data.Tickets[0].CreatorEmail)
	}
}

func TestSerializeDateRange(t *testing.T) {
	f := setupSerializerTest(t)
	for i, day := range []int{1, 10, 20} {
		ticket := ticketdomain.Ticket{
			ID:        f.node.Generate(),
			TenantID:  f.tenantID,
			Subject:   "t",
			Status:    ticketdomain.StatusOpen,
			Priority:  "normal",
			CreatedAt: time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC),
		}
		if err := f.db.Create(&ticket).Error; err != nil {
			t.Fatalf("seed ticket %d: %v", i, err)
		}
	}

	opts := DefaultOptions()
	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	opts.DateFrom = &from
	opts.DateTo = &to

	doc, err := f.serializer.Serialize(context.Background(), f.tenantID, principal.System(), opts)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(doc.Data.Tickets) != 1 {
		t.Fatalf("tickets in range = %d, want 1", len(doc.Data.Tickets))
	}
}

func TestSerializeUnknownTenant(t *testing.T) {
	f := setupSerializerTest(t)
	_, err := f.serializer.Serialize(context.Background(), f.node.Generate(), principal.System(), DefaultOptions())
	if !errors.Is(err, tenantdomain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestSerializeNonMemberRejected(t *testing.T) {
	f := setupSerializerTest(t)
	outsider := ticketdomain.User{ID: f.node.Generate(), Email: "out@other.test", DisplayName: "Out"}
	if err := f.db.Create(&outsider).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err := f.serializer.Serialize(context.Background(), f.tenantID, principal.ForUser(outsider.ID, "admin"), DefaultOptions())
	if !errors.Is(err, tenantdomain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}
