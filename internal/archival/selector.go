package archival

import (
	"context"
	"time"

	"github.com/bomizzel/helpdesk/internal/clock"
	ticketdomain "github.com/bomizzel/helpdesk/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Scope narrows one candidate selection.
type Scope struct {
	TenantID snowflake.ID
	// OwnerIDs, when set, restricts candidates to tickets created by these users.
	OwnerIDs         []snowflake.ID
	MaxResults       int
	AgeThresholdDays int
}

// Candidate is a completed ticket eligible for archival.
type Candidate struct {
	TicketID    snowflake.ID
	TenantID    snowflake.ID
	Status      ticketdomain.Status
	CompletedAt time.Time
}

// CandidateSelector lists archival candidates oldest-completed-first so a
// capped run always clears the oldest backlog before newer completions.
type CandidateSelector interface {
	Select(ctx context.Context, scope Scope) ([]Candidate, error)
}

type selector struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewCandidateSelector builds the gorm-backed selector. Read-only.
func NewCandidateSelector(db *gorm.DB, clk clock.Clock) CandidateSelector {
	return &selector{db: db, clock: clk}
}

func (s *selector) Select(ctx context.Context, scope Scope) ([]Candidate, error) {
	if scope.MaxResults <= 0 {
		scope.MaxResults = DefaultConfig().MaxRecordsPerRun
	}
	if scope.AgeThresholdDays < 0 {
		scope.AgeThresholdDays = 0
	}
	cutoff := s.clock.Now().Add(-time.Duration(scope.AgeThresholdDays) * 24 * time.Hour)

	query := s.db.WithContext(ctx).
		Table("tickets").
		Select("id AS ticket_id, tenant_id, status, completed_at").
		Where("tenant_id = ?", scope.TenantID).
		Where("status IN ?", ticketdomain.TerminalStatuses).
		Where("archived = ?", false).
		Where("completed_at IS NOT NULL AND completed_at <= ?", cutoff).
		Order("completed_at ASC, id ASC").
		Limit(scope.MaxResults)
	if len(scope.OwnerIDs) > 0 {
		query = query.Where("creator_id IN ?", scope.OwnerIDs)
	}

	var candidates []Candidate
	if err := query.Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}
