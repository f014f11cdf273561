package professional

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/internal/model"
	prosvc "github.com/clinicaviva/agenda-api/internal/service/professional"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

type Handler struct {
	service *prosvc.Service
}

func NewHandler(service *prosvc.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional payload", err))
		return
	}
	pro, err := h.service.Create(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, pro)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	pro, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pro)
}

func (h *Handler) List(c *gin.Context) {
	if c.Query("active") == "true" {
		pros, err := h.service.ListActive(c.Request.Context())
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, pros)
		return
	}
	pros, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pros)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	var req model.UpdateProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional payload", err))
		return
	}

	pro, err := h.service.Update(c.Request.Context(), middleware.ActorID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pro)
}

// Delete removes a professional along with their appointments, mirror
// entry and client assignments.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) AssociateClient(c *gin.Context) {
	proID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}

	pro, err := h.service.AssociateClient(c.Request.Context(), middleware.ActorID(c), proID, clientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pro)
}

func (h *Handler) DissociateClient(c *gin.Context) {
	proID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid professional id", err))
		return
	}
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}

	pro, err := h.service.DissociateClient(c.Request.Context(), middleware.ActorID(c), proID, clientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pro)
}
