// Package domain contains persistence models for tenants and their subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier identifies the subscription plan family a tenant is on.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Unlimited is the sentinel limit value exempt from quota checks.
const Unlimited int64 = -1

// TierSupportsArchival reports whether automatic archival is available on
// the given tier. Lower tiers relieve quota pressure by upgrading instead.
func TierSupportsArchival(tier Tier) bool {
	switch tier {
	case TierPro, TierEnterprise:
		return true
	default:
		return false
	}
}

// Tenant is an isolated customer organization scoping all other entities.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Subscription carries a tenant's plan and per-resource quotas.
type Subscription struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;uniqueIndex"`
	Tier     Tier         `gorm:"type:text;not null;default:free"`

	// Quota limits; Unlimited (-1) disables the corresponding check.
	ActiveTicketLimit    int64 `gorm:"not null;default:-1"`
	CompletedTicketLimit int64 `gorm:"not null;default:-1"`
	TotalTicketLimit     int64 `gorm:"not null;default:-1"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// PlanLimits is the quota view of a subscription consumed by the quota gate.
type PlanLimits struct {
	ActiveTicketLimit    int64
	CompletedTicketLimit int64
	TotalTicketLimit     int64
}

// Limits projects the subscription's quota fields.
func (s Subscription) Limits() PlanLimits {
	return PlanLimits{
		ActiveTicketLimit:    s.ActiveTicketLimit,
		CompletedTicketLimit: s.CompletedTicketLimit,
		TotalTicketLimit:     s.TotalTicketLimit,
	}
}
