package server

import (
	"net/http"
	"strings"
	"time"

	activitydomain "github.com/bomizzel/helpdesk/internal/activity/domain"
	"github.com/bomizzel/helpdesk/internal/export"
	"github.com/gin-gonic/gin"
)

type createExportRequest struct {
	TenantID            string  `json:"tenant_id"`
	IncludeUsers        *bool   `json:"include_users"`
	IncludeTickets      *bool   `json:"include_tickets"`
	IncludeAttachments  *bool   `json:"include_attachments"`
	IncludeConfigFields *bool   `json:"include_config_fields"`
	DateFrom            *string `json:"date_from"`
	DateTo              *string `json:"date_to"`
}

type createExportResponse struct {
	Artifact export.Artifact `json:"artifact"`
	Counts   map[string]int  `json:"counts"`
}

func (s *Server) CreateExport(c *gin.Context) {
	actor, ok := s.actorFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenantID, err := parseTenantID(req.TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	stampIdentity(c, tenantID, actor)

	opts := export.DefaultOptions()
	if req.IncludeUsers != nil {
		opts.IncludeUsers = *req.IncludeUsers
	}
	if req.IncludeTickets != nil {
		opts.IncludeTickets = *req.IncludeTickets
	}
	if req.IncludeAttachments != nil {
		opts.IncludeAttachments = *req.IncludeAttachments
	}
	if req.IncludeConfigFields != nil {
		opts.IncludeConfigFields = *req.IncludeConfigFields
	}
	if req.DateFrom != nil {
		if opts.DateFrom, err = parseOptionalTime(*req.DateFrom); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	if req.DateTo != nil {
		if opts.DateTo, err = parseOptionalTime(*req.DateTo); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	doc, err := s.serializer.Serialize(ctx, tenantID, actor, opts)
	if err != nil {
		s.metrics.ObserveExport(false, 0)
		AbortWithError(c, err)
		return
	}

	artifact, err := s.writer.Write(doc)
	if err != nil {
		s.metrics.ObserveExport(false, 0)
		AbortWithError(c, err)
		return
	}

	counts := doc.Counts()
	payload := map[string]any{"file_name": artifact.FileName, "size_bytes": artifact.FileSizeBytes}
	for section, n := range counts {
		payload[section] = n
	}
	s.ledger.Record(ctx, activitydomain.KindExport, tenantID, artifact.ExportID, actor, payload)
	s.metrics.ObserveExport(true, artifact.FileSizeBytes)

	c.JSON(http.StatusOK, createExportResponse{Artifact: artifact, Counts: counts})
}

func (s *Server) DownloadArtifact(c *gin.Context) {
	exportID := strings.TrimSpace(c.Param("exportId"))
	fileName := strings.TrimSpace(c.Param("fileName"))
	if exportID == "" || fileName == "" {
		AbortWithError(c, newValidationError("file_name", "missing_path", "export id and file name are required"))
		return
	}

	path, err := s.writer.Resolve(exportID, fileName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.File(path)
}

type cleanupRequest struct {
	OlderThanHours int `json:"older_than_hours"`
}

// CleanupArtifacts removes expired export directories. Admin only.
func (s *Server) CleanupArtifacts(c *gin.Context) {
	actor, ok := s.actorFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !s.isAdmin(actor) {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	if req.OlderThanHours < 0 {
		AbortWithError(c, newValidationError("older_than_hours", "invalid_age", "older_than_hours must be non-negative"))
		return
	}
	olderThan := s.writer.TTL()
	if req.OlderThanHours > 0 {
		olderThan = time.Duration(req.OlderThanHours) * time.Hour
	}

	removed, err := s.writer.Cleanup(olderThan)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
