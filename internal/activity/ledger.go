// Package activity appends and queries the lifecycle run ledger.
package activity

import (
	"context"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/principal"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

// Ledger records lifecycle runs and serves their history. Recording is
// best-effort observability: a ledger write failure never fails the run
// that produced it.
type Ledger interface {
	Record(ctx context.Context, kind domain.Kind, tenantID snowflake.ID, runID string, actor principal.Principal, payload map[string]any)
	History(ctx context.Context, tenantID snowflake.ID, kind domain.Kind, limit int) ([]domain.HistoryEntry, error)
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type ledger struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

// NewLedger builds the gorm-backed activity ledger.
func NewLedger(p Params) Ledger {
	return &ledger{
		db:    p.DB,
		log:   p.Log.Named("activity"),
		genID: p.GenID,
	}
}

func (l *ledger) Record(ctx context.Context, kind domain.Kind, tenantID snowflake.ID, runID string, actor principal.Principal, payload map[string]any) {
	entry := &domain.ActivityLog{
		ID:        l.genID.Generate(),
		TenantID:  tenantID,
		RunID:     runID,
		Kind:      kind,
		ActorType: string(actor.Kind),
		Payload:   datatypes.JSONMap{},
		CreatedAt: time.Now().UTC(),
	}
	if id := actor.ActorID(); id != "" {
		entry.ActorID = &id
	}
	for key, value := range payload {
		entry.Payload[key] = value
	}

	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		l.log.Warn("activity log write failed",
			zap.String("kind", string(kind)),
			zap.String("tenant_id", tenantID.String()),
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

func (l *ledger) History(ctx context.Context, tenantID snowflake.ID, kind domain.Kind, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}

	query := l.db.WithContext(ctx).
		Table("activity_logs AS a").
		Select("a.id, a.run_id, a.kind, a.actor_type, a.payload, a.created_at, COALESCE(u.display_name, '') AS actor_display_name").
		Joins("LEFT JOIN users u ON CAST(u.id AS TEXT) = a.actor_id").
		Where("a.tenant_id = ?", tenantID).
		Order("a.created_at DESC, a.id DESC").
		Limit(limit)
	if kind != "" {
		query = query.Where("a.kind = ?", kind)
	}

	var rows []struct {
		ID               snowflake.ID
		RunID            string
		Kind             domain.Kind
		ActorType        string
		ActorDisplayName string
		Payload          datatypes.JSONMap
		CreatedAt        time.Time
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.HistoryEntry{
			ID:               row.ID,
			RunID:            row.RunID,
			Kind:             row.Kind,
			ActorType:        row.ActorType,
			ActorDisplayName: row.ActorDisplayName,
			Payload:          map[string]any(row.Payload),
			CreatedAt:        row.CreatedAt,
		})
	}
	return entries, nil
}
