package finance

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/internal/model"
	financesvc "github.com/clinicaviva/agenda-api/internal/service/finance"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

type Handler struct {
	service *financesvc.Service
}

func NewHandler(service *financesvc.Service) *Handler {
	return &Handler{service: service}
}

func monthFromQuery(c *gin.Context) string {
	return c.DefaultQuery("month", time.Now().Format("2006-01"))
}

// GetSummary returns the clinic-wide monthly financial summary.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.service.MonthSummary(c.Request.Context(), monthFromQuery(c), nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

// GetMySummary returns the summary scoped to the authenticated
// professional's own sessions.
func (h *Handler) GetMySummary(c *gin.Context) {
	proID, err := uuid.Parse(middleware.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, errors.Forbidden("token is not bound to a professional"))
		return
	}

	summary, err := h.service.MonthSummary(c.Request.Context(), monthFromQuery(c), &proID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

// PostFinance confirms the monetary values of an appointment.
func (h *Handler) PostFinance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment id", err))
		return
	}
	var req model.PostFinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid finance payload", err))
		return
	}

	apt, err := h.service.PostFinance(c.Request.Context(), middleware.ActorID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}
