package archival

import (
	"context"
	"fmt"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity"
	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/clock"
	"github.com/bomizzel/helpdesk/internal/observability/metrics"
	"github.com/bomizzel/helpdesk/internal/principal"
	"github.com/bomizzel/helpdesk/internal/quota"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	"github.com/bomizzel/helpdesk/internal/usagestats"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TenantResult is the outcome of one tenant's slice of a run.
type TenantResult struct {
	TenantID     snowflake.ID `json:"tenant_id"`
	Archived     int          `json:"archived"`
	Skipped      bool         `json:"skipped"`
	UsagePercent float64      `json:"usage_percent"`
	Errors       []string     `json:"errors,omitempty"`
}

// RunSummary aggregates every tenant slice of one archival pass.
type RunSummary struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	TenantsProcessed int            `json:"tenants_processed"`
	TotalArchived    int            `json:"total_archived"`
	TenantResults    []TenantResult `json:"tenant_results"`
}

// TenantsWithErrors lists the tenant ids whose slice reported errors.
func (s RunSummary) TenantsWithErrors() []string {
	var ids []string
	for _, result := range s.TenantResults {
		if len(result.Errors) > 0 {
			ids = append(ids, result.TenantID.String())
		}
	}
	return ids
}

type RunnerParams struct {
	fx.In

	Config   Config
	Log      *zap.Logger
	Clock    clock.Clock
	Tenants  tenantdomain.Repository
	Usage    usagestats.Tracker
	Selector CandidateSelector
	Executor Executor
	Ledger   activity.Ledger
	Metrics  *metrics.LifecycleMetrics `optional:"true"`
}

// Runner drives one full archival pass across all eligible tenants.
type Runner struct {
	cfg      Config
	log      *zap.Logger
	clock    clock.Clock
	tenants  tenantdomain.Repository
	usage    usagestats.Tracker
	selector CandidateSelector
	executor Executor
	ledger   activity.Ledger
	metrics  *metrics.LifecycleMetrics
}

// NewRunner builds an archival runner.
func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		cfg:      p.Config.withDefaults(),
		log:      p.Log.Named("archival.runner"),
		clock:    p.Clock,
		tenants:  p.Tenants,
		usage:    p.Usage,
		selector: p.Selector,
		executor: p.Executor,
		ledger:   p.Ledger,
		metrics:  p.Metrics,
	}
}

// Run executes one pass. A tenant slice failing, panicking included, is
// recorded in that tenant's result and never aborts the rest of the run.
func (r *Runner) Run(ctx context.Context) RunSummary {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.clock.Now(),
	}
	if !r.cfg.Enabled {
		summary.FinishedAt = r.clock.Now()
		return summary
	}

	tenants, err := r.tenants.ListArchivalEligible(ctx)
	if err != nil {
		r.log.Error("listing archival-eligible tenants failed", zap.Error(err))
		summary.FinishedAt = r.clock.Now()
		return summary
	}

	results := make([]TenantResult, len(tenants))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.TenantParallelism)
	for i, tenant := range tenants {
		i, tenant := i, tenant
		group.Go(func() error {
			results[i] = r.processTenant(groupCtx, summary.RunID, tenant)
			return nil
		})
	}
	_ = group.Wait()

	for _, result := range results {
		summary.TenantsProcessed++
		summary.TotalArchived += result.Archived
	}
	summary.TenantResults = results
	summary.FinishedAt = r.clock.Now()

	if r.metrics != nil {
		r.metrics.ObserveArchivalRun(summary.TenantsProcessed, summary.TotalArchived, len(summary.TenantsWithErrors()))
	}
	r.log.Info("archival run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("tenants_processed", summary.TenantsProcessed),
		zap.Int("total_archived", summary.TotalArchived),
		zap.Strings("tenants_with_errors", summary.TenantsWithErrors()),
	)
	return summary
}

func (r *Runner) processTenant(ctx context.Context, runID string, tenant tenantdomain.ArchivalTenant) (result TenantResult) {
	result.TenantID = tenant.TenantID
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("tenant processing panic: %v", recovered))
		}
		r.ledger.Record(ctx, activitydomain.KindArchival, tenant.TenantID, runID, principal.System(), map[string]any{
			"archived":      result.Archived,
			"skipped":       result.Skipped,
			"usage_percent": result.UsagePercent,
			"errors":        result.Errors,
		})
	}()

	if r.cfg.OnlyWhenApproachingLimit {
		usage, err := r.usage.Collect(ctx, tenant.TenantID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("usage collection failed: %v", err))
			return result
		}
		decision := quota.Evaluate(usage, tenant.Limits, r.cfg.LimitThresholdPercent)
		result.UsagePercent = decision.UsagePercent
		if !decision.ShouldArchive {
			result.Skipped = true
			return result
		}
	}

	candidates, err := r.selector.Select(ctx, Scope{
		TenantID:         tenant.TenantID,
		MaxResults:       r.cfg.MaxRecordsPerRun,
		AgeThresholdDays: r.cfg.AgeThresholdDays,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("candidate selection failed: %v", err))
		return result
	}

	// Sequential within the tenant so the audit trail keeps completion order.
	for _, candidate := range candidates {
		if err := r.executor.Archive(ctx, candidate.TicketID, principal.System()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("ticket %s: %v", candidate.TicketID, err))
			continue
		}
		result.Archived++
	}
	return result
}
