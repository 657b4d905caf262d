// Package migration bootstraps the database schema.
package migration

import (
	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table the engine owns.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&tenantdomain.Tenant{},
		&tenantdomain.Subscription{},
		&ticketdomain.User{},
		&ticketdomain.TenantMember{},
		&ticketdomain.Ticket{},
		&ticketdomain.TicketNote{},
		&ticketdomain.ConfigField{},
		&ticketdomain.Attachment{},
		&ticketdomain.TicketEvent{},
		&activitydomain.ActivityLog{},
	)
}
