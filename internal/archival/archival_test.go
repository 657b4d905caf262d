package archival

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity"
	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/clock"
	"github.com/bomizzel/helpdesk/internal/principal"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bomizzel/helpdesk/internal/usagestats"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock clock.Fixed
}

func setupArchivalTest(t *testing.T) *fixture {
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
		&ticketdomain.Ticket{},
		&ticketdomain.TicketEvent{},
		&activitydomain.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return &fixture{
		db:    db,
		node:  node,
		clock: clock.Fixed{At: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func (f *fixture) seedTicket(t *testing.T, tenantID snowflake.ID, status ticketdomain.Status, completedDaysAgo int, archived bool) snowflake.ID {
	t.Helper()
	ticket := ticketdomain.Ticket{
		ID:       f.node.Generate(),
		TenantID: tenantID,
		Subject:  "ticket " + f.node.Generate().String(),
		Status:   status,
		Priority: "normal",
		Archived: archived,
	}
	if status.IsTerminal() {
		completed := f.clock.Now().Add(-time.Duration(completedDaysAgo) * 24 * time.Hour)
		ticket.CompletedAt = &completed
	}
	if err := f.db.Create(&ticket).Error; err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket.ID
}

func (f *fixture) seedTenant(t *testing.T, tier tenantdomain.Tier, completedLimit int64) snowflake.ID {
	t.Helper()
	tenantID := f.node.Generate()
	tenant := tenantdomain.Tenant{ID: tenantID, Name: "t-" + tenantID.String(), Slug: "t-" + tenantID.String()}
	if err := f.db.Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	sub := tenantdomain.Subscription{
		ID:                   f.node.Generate(),
		TenantID:             tenantID,
		Tier:                 tier,
		ActiveTicketLimit:    tenantdomain.Unlimited,
		CompletedTicketLimit: completedLimit,
		TotalTicketLimit:     tenantdomain.Unlimited,
	}
	if err := f.db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return tenantID
}

func TestSelectorOrdersOldestCompletedFirst(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.node.Generate()

	newer := f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 40, false)
	oldest := f.seedTicket(t, tenantID, ticketdomain.StatusResolved, 90, false)
	middle := f.seedTicket(t, tenantID, ticketdomain.StatusResolved, 60, false)
	// None of these are eligible: open, already archived, too recent,
	// wrong tenant.
	f.seedTicket(t, tenantID, ticketdomain.StatusOpen, 0, false)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 100, true)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 5, false)
	f.seedTicket(t, f.node.Generate(), ticketdomain.StatusClosed, 90, false)

	sel := NewCandidateSelector(f.db, f.clock)
	candidates, err := sel.Select(context.Background(), Scope{
		TenantID:         tenantID,
		MaxResults:       10,
		AgeThresholdDays: 30,
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	want := []snowflake.ID{oldest, middle, newer}
	for i, id := range want {
		if candidates[i].TicketID != id {
			t.Fatalf("candidate %d = %s, want %s", i, candidates[i].TicketID, id)
		}
	}
}

func TestSelectorCapsResults(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.node.Generate()
	for i := 0; i < 5; i++ {
		f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 40+i, false)
	}

	sel := NewCandidateSelector(f.db, f.clock)
	candidates, err := sel.Select(context.Background(), Scope{
		TenantID:         tenantID,
		MaxResults:       2,
		AgeThresholdDays: 30,
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(candidates))
	}
}

func TestSelectorOwnerFilter(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.node.Generate()
	owner := f.node.Generate()

	mine := f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)
	if err := f.db.Exec(`UPDATE tickets SET creator_id = ? WHERE id = ?`, owner, mine).Error; err != nil {
		t.Fatalf("set creator: %v", err)
	}
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	sel := NewCandidateSelector(f.db, f.clock)
	candidates, err := sel.Select(context.Background(), Scope{
		TenantID:         tenantID,
		OwnerIDs:         []snowflake.ID{owner},
		MaxResults:       10,
		AgeThresholdDays: 30,
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(candidates) != 1 || candidates[0].TicketID != mine {
		t.Fatalf("owner filter returned %d candidates", len(candidates))
	}
}

func TestExecutorArchivesAndRecordsEvent(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.node.Generate()
	ticketID := f.seedTicket(t, tenantID, ticketdomain.StatusResolved, 60, false)

	exec := NewExecutor(f.db, zap.NewNop(), f.node, f.clock)
	if err := exec.Archive(context.Background(), ticketID, principal.System()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	var ticket ticketdomain.Ticket
	if err := f.db.First(&ticket, "id = ?", ticketID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if !ticket.Archived {
		t.Fatal("ticket not archived")
	}
	if ticket.Status != ticketdomain.StatusResolved {
		t.Fatalf("status changed to %q", ticket.Status)
	}

	var events []ticketdomain.TicketEvent
	if err := f.db.Find(&events, "ticket_id = ?", ticketID).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Action != "ticket.archived" {
		t.Fatalf("event action = %q", events[0].Action)
	}
	if events[0].ActorType != string(principal.KindSystem) {
		t.Fatalf("event actor type = %q", events[0].ActorType)
	}
	if events[0].ActorID != nil {
		t.Fatal("system events must not carry an actor id")
	}
}

func TestExecutorArchiveIsIdempotent(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.node.Generate()
	ticketID := f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	exec := NewExecutor(f.db, zap.NewNop(), f.node, f.clock)
	ctx := context.Background()
	if err := exec.Archive(ctx, ticketID, principal.System()); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if err := exec.Archive(ctx, ticketID, principal.System()); err != nil {
		t.Fatalf("second archive: %v", err)
	}

	var count int64
	if err := f.db.Model(&ticketdomain.TicketEvent{}).Where("ticket_id = ?", ticketID).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("idempotent archive wrote %d events, want 1", count)
	}
}

func TestExecutorArchiveMissingTicket(t *testing.T) {
	f := setupArchivalTest(t)
	exec := NewExecutor(f.db, zap.NewNop(), f.node, f.clock)
	err := exec.Archive(context.Background(), f.node.Generate(), principal.System())
	if err != ErrTicketNotFound {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func newRunner(f *fixture, cfg Config) *Runner {
	return NewRunner(RunnerParams{
		Config:   cfg,
		Log:      zap.NewNop(),
		Clock:    f.clock,
		Tenants:  tenantdomain.NewRepository(f.db),
		Usage:    usagestats.NewTracker(f.db, zap.NewNop()),
		Selector: NewCandidateSelector(f.db, f.clock),
		Executor: NewExecutor(f.db, zap.NewNop(), f.node, f.clock),
		Ledger:   activity.NewLedger(activity.Params{DB: f.db, Log: zap.NewNop(), GenID: f.node}),
	})
}

func TestRunnerDisabledDoesNothing(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierPro, 1)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	runner := newRunner(f, Config{Enabled: false})
	summary := runner.Run(context.Background())
	if summary.TenantsProcessed != 0 || summary.TotalArchived != 0 {
		t.Fatalf("disabled run did work: %+v", summary)
	}
}

func TestRunnerArchivesOverQuotaTenant(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierPro, 2)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 90, false)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 5, false) // too recent to archive

	runner := newRunner(f, Config{
		Enabled:                  true,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         10,
		OnlyWhenApproachingLimit: true,
		LimitThresholdPercent:    80,
	})
	summary := runner.Run(context.Background())
	if summary.RunID == "" {
		t.Fatal("missing run id")
	}
	if summary.TenantsProcessed != 1 {
		t.Fatalf("tenants processed = %d", summary.TenantsProcessed)
	}
	if summary.TotalArchived != 2 {
		t.Fatalf("archived = %d, want 2", summary.TotalArchived)
	}

	// The pass is recorded on the tenant's ledger.
	led := activity.NewLedger(activity.Params{DB: f.db, Log: zap.NewNop(), GenID: f.node})
	entries, err := led.History(context.Background(), tenantID, activitydomain.KindArchival, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].RunID != summary.RunID {
		t.Fatalf("ledger run id %q != summary run id %q", entries[0].RunID, summary.RunID)
	}
}

func TestRunnerSkipsTenantUnderThreshold(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierPro, 100)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	runner := newRunner(f, Config{
		Enabled:                  true,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         10,
		OnlyWhenApproachingLimit: true,
		LimitThresholdPercent:    80,
	})
	summary := runner.Run(context.Background())
	if summary.TotalArchived != 0 {
		t.Fatalf("archived %d tickets under threshold", summary.TotalArchived)
	}
	if len(summary.TenantResults) != 1 || !summary.TenantResults[0].Skipped {
		t.Fatalf("expected skipped result, got %+v", summary.TenantResults)
	}
}

func TestRunnerSkipsUnlimitedTenant(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierEnterprise, tenantdomain.Unlimited)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	runner := newRunner(f, Config{
		Enabled:                  true,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         10,
		OnlyWhenApproachingLimit: true,
		LimitThresholdPercent:    80,
	})
	summary := runner.Run(context.Background())
	if summary.TotalArchived != 0 {
		t.Fatalf("archived %d tickets on an unlimited plan", summary.TotalArchived)
	}
}

func TestRunnerIgnoresLowerTiers(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierFree, 1)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	runner := newRunner(f, Config{
		Enabled:          true,
		AgeThresholdDays: 30,
		MaxRecordsPerRun: 10,
	})
	summary := runner.Run(context.Background())
	if summary.TenantsProcessed != 0 {
		t.Fatalf("free-tier tenant was processed: %+v", summary)
	}
}

// failingExecutor fails every archive, standing in for storage trouble on
// one tenant's slice.
type failingExecutor struct{}

func (failingExecutor) Archive(context.Context, snowflake.ID, principal.Principal) error {
	return ErrTicketNotFound
}

func TestRunnerIsolatesTenantErrors(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierPro, 1)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)
	otherID := f.seedTenant(t, tenantdomain.TierPro, 1)
	f.seedTicket(t, otherID, ticketdomain.StatusClosed, 60, false)

	runner := newRunner(f, Config{
		Enabled:                  true,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         10,
		OnlyWhenApproachingLimit: true,
		LimitThresholdPercent:    80,
		TenantParallelism:        1,
	})
	runner.executor = failingExecutor{}

	summary := runner.Run(context.Background())
	if summary.TenantsProcessed != 2 {
		t.Fatalf("tenants processed = %d, want 2", summary.TenantsProcessed)
	}
	if got := len(summary.TenantsWithErrors()); got != 2 {
		t.Fatalf("tenants with errors = %d, want 2", got)
	}
	if summary.TotalArchived != 0 {
		t.Fatalf("archived = %d with a failing executor", summary.TotalArchived)
	}
	for _, result := range summary.TenantResults {
		if len(result.Errors) == 0 {
			t.Fatalf("tenant %s has no recorded errors", result.TenantID)
		}
	}
}
