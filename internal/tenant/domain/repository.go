package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bomizzel/helpdesk/internal/cache"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// subscriptionCacheTTL bounds how stale a plan-limit read may be. Archival
// decisions tolerate short staleness; exports always re-read the tenant row.
const subscriptionCacheTTL = 30 * time.Second

var (
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrNotMember      = errors.New("actor_not_tenant_member")
)

// ArchivalTenant pairs a tenant with its subscription for an archival pass.
type ArchivalTenant struct {
	TenantID snowflake.ID
	Tier     Tier
	Limits   PlanLimits
}

// Repository provides the tenant reads the lifecycle engine needs.
type Repository interface {
	// FindByID returns ErrTenantNotFound when the tenant does not exist.
	FindByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
	// SubscriptionFor returns the tenant's subscription, or nil when none exists.
	SubscriptionFor(ctx context.Context, tenantID snowflake.ID) (*Subscription, error)
	// ListArchivalEligible enumerates tenants whose tier supports archival.
	ListArchivalEligible(ctx context.Context) ([]ArchivalTenant, error)
}

type repository struct {
	db            *gorm.DB
	subscriptions *cache.TTLCache[snowflake.ID, *Subscription]
}

// NewRepository builds the gorm-backed tenant repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db:            db,
		subscriptions: cache.NewTTLCache[snowflake.ID, *Subscription](),
	}
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*Tenant, error) {
	var tenant Tenant
	err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) SubscriptionFor(ctx context.Context, tenantID snowflake.ID) (*Subscription, error) {
	if cached, ok := r.subscriptions.Get(tenantID); ok {
		return cached, nil
	}

	var subscription Subscription
	err := r.db.WithContext(ctx).First(&subscription, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.subscriptions.Set(tenantID, nil, subscriptionCacheTTL)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.subscriptions.Set(tenantID, &subscription, subscriptionCacheTTL)
	return &subscription, nil
}

func (r *repository) ListArchivalEligible(ctx context.Context) ([]ArchivalTenant, error) {
	var rows []struct {
		TenantID             snowflake.ID
		Tier                 Tier
		ActiveTicketLimit    int64
		CompletedTicketLimit int64
		TotalTicketLimit     int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT s.tenant_id, s.tier, s.active_ticket_limit, s.completed_ticket_limit, s.total_ticket_limit
		 FROM subscriptions s
		 WHERE s.tier IN (?, ?)
		 ORDER BY s.tenant_id`,
		TierPro,
		TierEnterprise,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tenants := make([]ArchivalTenant, 0, len(rows))
	for _, row := range rows {
		tenants = append(tenants, ArchivalTenant{
			TenantID: row.TenantID,
			Tier:     row.Tier,
			Limits: PlanLimits{
				ActiveTicketLimit:    row.ActiveTicketLimit,
				CompletedTicketLimit: row.CompletedTicketLimit,
				TotalTicketLimit:     row.TotalTicketLimit,
			},
		})
	}
	return tenants, nil
}
