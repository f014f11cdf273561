package client

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/internal/model"
	clientsvc "github.com/clinicaviva/agenda-api/internal/service/client"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

type Handler struct {
	service *clientsvc.Service
}

func NewHandler(service *clientsvc.Service) *Handler {
	return &Handler{service: service}
}

// Create registers a client. Passing force=true skips duplicate
// detection; without it a likely duplicate is returned with 409 so the
// operator can confirm.
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client payload", err))
		return
	}
	force := c.Query("force") == "true"

	client, match, err := h.service.Create(c.Request.Context(), middleware.ActorID(c), &req, force)
	if err != nil {
		if match != nil {
			c.JSON(http.StatusConflict, httputil.Response{
				Success: false,
				Data:    match,
				Error: &httputil.Error{
					Code:    http.StatusConflict,
					Message: err.Error(),
					Tag:     errors.TagOf(err),
				},
			})
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, client)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}
	client, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, client)
}

func (h *Handler) List(c *gin.Context) {
	clients, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clients)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}
	var req model.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client payload", err))
		return
	}

	client, err := h.service.Update(c.Request.Context(), middleware.ActorID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, client)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid client id", err))
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
