package server

import (
	"net/http"
	"strconv"
	"strings"

	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) TenantHistory(c *gin.Context) {
	actor, ok := s.actorFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tenantID, err := parseTenantID(c.Param("tenantId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	stampIdentity(c, tenantID, actor)

	ctx := c.Request.Context()
	if err := s.requireMember(ctx, tenantID, actor); err != nil {
		AbortWithError(c, err)
		return
	}

	var kind activitydomain.Kind
	switch raw := strings.TrimSpace(c.Query("kind")); raw {
	case "":
	case string(activitydomain.KindExport), string(activitydomain.KindImport), string(activitydomain.KindArchival):
		kind = activitydomain.Kind(raw)
	default:
		AbortWithError(c, newValidationError("kind", "invalid_kind", "kind must be export, import or archival"))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
	}

	entries, err := s.ledger.History(ctx, tenantID, kind, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grouped := gin.H{
		"exports":  []activitydomain.HistoryEntry{},
		"imports":  []activitydomain.HistoryEntry{},
		"archival": []activitydomain.HistoryEntry{},
	}
	for _, entry := range entries {
		var key string
		switch entry.Kind {
		case activitydomain.KindExport:
			key = "exports"
		case activitydomain.KindImport:
			key = "imports"
		case activitydomain.KindArchival:
			key = "archival"
		default:
			continue
		}
		grouped[key] = append(grouped[key].([]activitydomain.HistoryEntry), entry)
	}
	c.JSON(http.StatusOK, grouped)
}
