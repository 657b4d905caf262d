package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerArchival starts a run outside the schedule. Concurrent triggers
// are collapsed into the run already in flight.
func (s *Server) TriggerArchival(c *gin.Context) {
	actor, ok := s.actorFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !s.isAdmin(actor) {
		AbortWithError(c, ErrForbidden)
		return
	}

	summary, ran := s.scheduler.RunNow(c.Request.Context())
	if !ran {
		c.JSON(http.StatusConflict, gin.H{"status": "skipped", "reason": "run_in_progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "summary": summary})
}

func (s *Server) ArchivalStatus(c *gin.Context) {
	if _, ok := s.actorFromRequest(c); !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, s.scheduler.Status())
}
