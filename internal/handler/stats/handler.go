package stats

import (
	"github.com/gin-gonic/gin"

	statssvc "github.com/clinicaviva/agenda-api/internal/service/stats"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

type Handler struct {
	service *statssvc.Service
}

func NewHandler(service *statssvc.Service) *Handler {
	return &Handler{service: service}
}

// GetPublicStats serves the landing page counters. Never errors.
func (h *Handler) GetPublicStats(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Public(c.Request.Context()))
}
