// Package seed bootstraps a default tenant for development setups.
package seed

import (
	"context"
	"errors"
	"time"

	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	defaultTenantName  = "Main"
	defaultTenantSlug  = "main"
	defaultAdminEmail  = "admin@helpdesk.local"
	defaultAdminName   = "Helpdesk Admin"
	defaultMemberRole  = "admin"
	defaultTenantsTier = tenantdomain.TierEnterprise
)

// EnsureDefaultTenant seeds the default tenant, its subscription and an
// admin account. Idempotent: existing rows are left as they are.
func EnsureDefaultTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var tenant tenantdomain.Tenant
		if err := tx.Where("slug = ?", defaultTenantSlug).Limit(1).Find(&tenant).Error; err != nil {
			return err
		}
		if tenant.ID == 0 {
			tenant = tenantdomain.Tenant{
				ID:        node.Generate(),
				Name:      defaultTenantName,
				Slug:      defaultTenantSlug,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&tenant).Error; err != nil {
				return err
			}
		}

		var subscription tenantdomain.Subscription
		if err := tx.Where("tenant_id = ?", tenant.ID).Limit(1).Find(&subscription).Error; err != nil {
			return err
		}
		if subscription.ID == 0 {
			subscription = tenantdomain.Subscription{
				ID:                   node.Generate(),
				TenantID:             tenant.ID,
				Tier:                 defaultTenantsTier,
				ActiveTicketLimit:    tenantdomain.Unlimited,
				CompletedTicketLimit: tenantdomain.Unlimited,
				TotalTicketLimit:     tenantdomain.Unlimited,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if err := tx.Create(&subscription).Error; err != nil {
				return err
			}
		}

		var admin ticketdomain.User
		if err := tx.Where("email = ?", defaultAdminEmail).Limit(1).Find(&admin).Error; err != nil {
			return err
		}
		if admin.ID == 0 {
			admin = ticketdomain.User{
				ID:            node.Generate(),
				Email:         defaultAdminEmail,
				DisplayName:   defaultAdminName,
				EmailVerified: true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
		}

		var member ticketdomain.TenantMember
		if err := tx.Where("tenant_id = ? AND user_id = ?", tenant.ID, admin.ID).Limit(1).Find(&member).Error; err != nil {
			return err
		}
		if member.ID == 0 {
			member = ticketdomain.TenantMember{
				ID:        node.Generate(),
				TenantID:  tenant.ID,
				UserID:    admin.ID,
				Role:      defaultMemberRole,
				CreatedAt: now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
