package agenda

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/internal/model"
	"github.com/clinicaviva/agenda-api/internal/service/schedule"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
	"github.com/clinicaviva/agenda-api/pkg/messaging"
)

type Handler struct {
	service *schedule.Service
	broker  messaging.Broker
}

func NewHandler(service *schedule.Service, broker messaging.Broker) *Handler {
	return &Handler{service: service, broker: broker}
}

func windowFromQuery(c *gin.Context) schedule.Window {
	mode := schedule.WindowMode(c.DefaultQuery("mode", string(schedule.WindowWeek)))
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	return schedule.Window{Mode: mode, Anchor: date}
}

// GetAgenda returns the admin grid for the requested window.
func (h *Handler) GetAgenda(c *gin.Context) {
	grid, err := h.service.Agenda(c.Request.Context(), windowFromQuery(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, grid)
}

// GetMyAgenda returns the grid scoped to the authenticated professional.
func (h *Handler) GetMyAgenda(c *gin.Context) {
	proID, err := uuid.Parse(middleware.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, errors.Forbidden("token is not bound to a professional"))
		return
	}

	grid, err := h.service.MyAgenda(c.Request.Context(), proID, windowFromQuery(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, grid)
}

// SaveCell creates or rewrites a grid cell.
func (h *Handler) SaveCell(c *gin.Context) {
	var req model.SaveCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid cell payload", err))
		return
	}

	apt, warnings, err := h.service.SaveCell(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if len(warnings) > 0 {
		httputil.RespondWithWarnings(c, apt, warnings)
		return
	}
	if req.ID == nil {
		httputil.RespondWithCreated(c, apt)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) GetCell(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment id", err))
		return
	}

	apt, err := h.service.GetCell(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

// DeleteCell removes a grid cell. Deleting an already-gone cell succeeds.
func (h *Handler) DeleteCell(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment id", err))
		return
	}

	if err := h.service.DeleteCell(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

// GetClientBalance serves the cell editor's package balance display.
func (h *Handler) GetClientBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}
	balance := h.service.ClientPackageBalance(c.Request.Context(), id)
	httputil.RespondWithSuccess(c, gin.H{"balance": balance})
}

// GetProfessionalBalance serves the cell editor's advance balance display.
func (h *Handler) GetProfessionalBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	balance := h.service.ProfessionalAdvanceBalance(c.Request.Context(), id)
	httputil.RespondWithSuccess(c, gin.H{"balance": balance})
}

// Stream pushes agenda change events over server-sent events. Open
// panels re-fetch their window on every message instead of patching
// state locally.
func (h *Handler) Stream(c *gin.Context) {
	events, err := h.broker.Subscribe(c.Request.Context(), messaging.ChannelAgenda)
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("agenda", string(msg))
			return true
		case <-keepalive.C:
			c.SSEvent("keepalive", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
