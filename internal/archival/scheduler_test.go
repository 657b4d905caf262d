package archival

import (
	"context"
	"testing"
	"time"

	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bomizzel/helpdesk/internal/usagestats"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// blockingTracker parks usage collection until released, holding a run in
// flight for overlap tests.
type blockingTracker struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTracker) Collect(ctx context.Context, tenantID snowflake.ID) (usagestats.Snapshot, error) {
	b.entered <- struct{}{}
	<-b.release
	return usagestats.Snapshot{TenantID: tenantID}, nil
}

func TestSchedulerRejectsOverlappingRuns(t *testing.T) {
	f := setupArchivalTest(t)
	tenantID := f.seedTenant(t, tenantdomain.TierPro, 1)
	f.seedTicket(t, tenantID, ticketdomain.StatusClosed, 60, false)

	tracker := &blockingTracker{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	runner := newRunner(f, Config{
		Enabled:                  true,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         10,
		OnlyWhenApproachingLimit: true,
	})
	runner.usage = tracker

	scheduler := NewScheduler(runner, zap.NewNop(), f.clock)

	done := make(chan RunSummary, 1)
	go func() {
		summary, _ := scheduler.RunNow(context.Background())
		done <- summary
	}()

	// Wait for the first run to hold the guard.
	select {
	case <-tracker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}
	if !scheduler.Status().RunInProgress {
		t.Fatal("status does not report a run in progress")
	}

	if _, ran := scheduler.RunNow(context.Background()); ran {
		t.Fatal("second run was not rejected while the first was in flight")
	}

	close(tracker.release)
	select {
	case summary := <-done:
		if summary.RunID == "" {
			t.Fatal("first run returned no summary")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first run never finished")
	}

	status := scheduler.Status()
	if status.RunInProgress {
		t.Fatal("run still reported in progress after completion")
	}
	if status.LastRun == nil {
		t.Fatal("last run not recorded")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	f := setupArchivalTest(t)
	runner := newRunner(f, Config{Enabled: true, Interval: time.Hour})
	scheduler := NewScheduler(runner, zap.NewNop(), f.clock)

	scheduler.Start()
	// A second Start must not arm a second timer.
	scheduler.Start()

	status := scheduler.Status()
	if !status.Armed {
		t.Fatal("scheduler not armed after Start")
	}
	if status.NextRunAt == nil {
		t.Fatal("armed scheduler reports no next run time")
	}

	scheduler.Stop()
	if scheduler.Status().Armed {
		t.Fatal("scheduler still armed after Stop")
	}
	// Stopping an idle scheduler is a no-op.
	scheduler.Stop()
}
