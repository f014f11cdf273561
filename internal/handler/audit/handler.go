package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clinicaviva/agenda-api/internal/model"
	auditsvc "github.com/clinicaviva/agenda-api/internal/service/audit"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

type Handler struct {
	service *auditsvc.Service
}

func NewHandler(service *auditsvc.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AuditFilters{
		ActorID:  c.Query("actorId"),
		Resource: c.Query("resource"),
		Action:   c.Query("action"),
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filters.Limit = n
		}
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, logs)
}
