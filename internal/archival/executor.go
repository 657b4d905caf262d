package archival

import (
	"context"
	"errors"

	"github.com/bomizzel/helpdesk/internal/clock"
	"github.com/bomizzel/helpdesk/internal/principal"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrTicketNotFound = errors.New("ticket_not_found")

const actionArchived = "ticket.archived"

// Executor transitions a single ticket into the archived state.
type Executor interface {
	// Archive is idempotent: archiving an already-archived ticket is a
	// no-op success.
	Archive(ctx context.Context, ticketID snowflake.ID, actor principal.Principal) error
}

type executor struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

// NewExecutor builds the gorm-backed archival executor.
func NewExecutor(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock) Executor {
	return &executor{
		db:    db,
		log:   log.Named("archival.executor"),
		genID: genID,
		clock: clk,
	}
}

func (e *executor) Archive(ctx context.Context, ticketID snowflake.ID, actor principal.Principal) error {
	now := e.clock.Now()

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket struct {
			ID       snowflake.ID
			TenantID snowflake.ID
			Archived bool
		}
		err := tx.WithContext(ctx).Raw(
			`SELECT id, tenant_id, archived FROM tickets WHERE id = ?`,
			ticketID,
		).Scan(&ticket).Error
		if err != nil {
			return err
		}
		if ticket.ID == 0 {
			return ErrTicketNotFound
		}
		if ticket.Archived {
			return nil
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE tickets SET archived = ?, updated_at = ? WHERE id = ? AND archived = ?`,
			true,
			now,
			ticketID,
			false,
		).Error; err != nil {
			return err
		}

		// Audit trail write. Failing to record it is logged, not fatal:
		// the archive itself already happened inside this transaction.
		event := ticketdomain.TicketEvent{
			ID:        e.genID.Generate(),
			TenantID:  ticket.TenantID,
			TicketID:  ticketID,
			Action:    actionArchived,
			ActorType: string(actor.Kind),
			CreatedAt: now,
		}
		if id := actor.ActorID(); id != "" {
			event.ActorID = &id
		}
		if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
			e.log.Warn("ticket audit trail write failed",
				zap.String("ticket_id", ticketID.String()),
				zap.Error(err),
			)
		}
		return nil
	})
}
