package server

import (
	"errors"
	"net/http"

	"github.com/bomizzel/helpdesk/internal/export"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	"github.com/gin-gonic/gin"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
)

type apiError struct {
	status  int
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Message }

func invalidRequestError() error {
	return &apiError{status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) error {
	return &apiError{status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// AbortWithError maps domain errors onto HTTP statuses and renders a
// structured error body.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNotFound), errors.Is(err, export.ErrArtifactNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, export.ErrArtifactExpired):
		status, code = http.StatusNotFound, "artifact_expired"
	case errors.Is(err, tenantdomain.ErrTenantNotFound):
		status, code = http.StatusNotFound, "tenant_not_found"
	case errors.Is(err, tenantdomain.ErrNotMember):
		status, code = http.StatusForbidden, "not_tenant_member"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}
