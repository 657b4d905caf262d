// Package usagestats collects per-tenant ticket counts for quota decisions.
package usagestats

import (
	"context"

	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Snapshot is a point-in-time count of a tenant's tickets. Counts are real
// aggregates, never sampled or estimated: the quota gate depends on them
// being deterministic.
type Snapshot struct {
	TenantID       snowflake.ID
	ActiveCount    int64
	CompletedCount int64
	TotalCount     int64
}

// Tracker computes usage snapshots.
type Tracker interface {
	Collect(ctx context.Context, tenantID snowflake.ID) (Snapshot, error)
}

type tracker struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTracker builds the gorm-backed usage tracker.
func NewTracker(db *gorm.DB, log *zap.Logger) Tracker {
	return &tracker{db: db, log: log.Named("usagestats")}
}

func (t *tracker) Collect(ctx context.Context, tenantID snowflake.ID) (Snapshot, error) {
	snapshot := Snapshot{TenantID: tenantID}

	// Archived tickets are excluded from completed counts: relieving the
	// completed quota is the whole point of archival.
	err := t.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(CASE WHEN status NOT IN (?, ?) THEN 1 END) AS active_count,
			COUNT(CASE WHEN status IN (?, ?) AND archived = ? THEN 1 END) AS completed_count,
			COUNT(CASE WHEN archived = ? THEN 1 END) AS total_count
		 FROM tickets
		 WHERE tenant_id = ?`,
		ticketdomain.StatusResolved, ticketdomain.StatusClosed,
		ticketdomain.StatusResolved, ticketdomain.StatusClosed, false,
		false,
		tenantID,
	).Scan(&snapshot).Error
	if err != nil {
		return Snapshot{TenantID: tenantID}, err
	}
	return snapshot, nil
}
