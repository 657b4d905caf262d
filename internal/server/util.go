package server

import (
	"context"
	"strings"
	"time"

	obscontext "github.com/bomizzel/helpdesk/internal/observability/context"
	"github.com/bomizzel/helpdesk/internal/principal"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

// actorFromRequest resolves the acting user from the identity headers set
// by the gateway. The system principal is never accepted from the wire.
func (s *Server) actorFromRequest(c *gin.Context) (principal.Principal, bool) {
	raw := strings.TrimSpace(c.GetHeader(headerUserID))
	if raw == "" {
		return principal.Principal{}, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return principal.Principal{}, false
	}
	role := strings.TrimSpace(c.GetHeader(headerUserRole))
	return principal.ForUser(id, role), true
}

// stampIdentity pushes tenant and actor identity into the request context
// so downstream log lines carry them.
func stampIdentity(c *gin.Context, tenantID snowflake.ID, actor principal.Principal) {
	ctx := obscontext.WithTenantID(c.Request.Context(), tenantID.String())
	ctx = obscontext.WithActor(ctx, string(actor.Kind), actor.ActorID())
	c.Request = c.Request.WithContext(ctx)
}

func (s *Server) isAdmin(actor principal.Principal) bool {
	return actor.Role == "admin" || actor.Role == "owner"
}

// requireMember checks that the actor belongs to the tenant. Admin roles
// are still required to be members; there is no cross-tenant access.
func (s *Server) requireMember(ctx context.Context, tenantID snowflake.ID, actor principal.Principal) error {
	if actor.IsSystem() {
		return nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Table("tenant_members").
		Where("tenant_id = ? AND user_id = ?", tenantID, actor.UserID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return tenantdomain.ErrNotMember
	}
	return nil
}

func parseTenantID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, newValidationError("tenant_id", "invalid_tenant_id", "tenant id must be a valid id")
	}
	return id, nil
}

func parseOptionalTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, newValidationError("date", "invalid_date", "date must be RFC3339 or YYYY-MM-DD")
}
