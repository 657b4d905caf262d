package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bomizzel/helpdesk/internal/importer"
	"github.com/gin-gonic/gin"
)

// maxSnapshotBytes caps uploaded snapshot size at 64 MiB.
const maxSnapshotBytes = 64 << 20

func (s *Server) ImportSnapshot(c *gin.Context) {
	actor, ok := s.actorFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tenantID, err := parseTenantID(c.PostForm("tenant_id"))
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

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "snapshot file is required"))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxSnapshotBytes+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(body) > maxSnapshotBytes {
		AbortWithError(c, newValidationError("file", "file_too_large", "snapshot exceeds the size limit"))
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		AbortWithError(c, newValidationError("file", "invalid_json", "snapshot is not valid JSON"))
		return
	}

	opts := importer.DefaultOptions()
	if v, present := formBool(c, "overwrite_existing"); present {
		opts.OverwriteExisting = v
	}
	if v, present := formBool(c, "skip_duplicates"); present {
		opts.SkipDuplicates = v
	}
	if v, present := formBool(c, "validate_only"); present {
		opts.ValidateOnly = v
	}

	summary := s.importer.Import(ctx, tenantID, actor, raw, opts)

	status := http.StatusOK
	if !summary.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, summary)
}

func formBool(c *gin.Context, key string) (value, present bool) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return parsed, true
}
