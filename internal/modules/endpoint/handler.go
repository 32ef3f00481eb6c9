package endpoint

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/middleware"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"github.com/kengoodridge/ai-chatbot/internal/store"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/endpoints", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateEndpointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	ep, err := h.svc.Create(middleware.CurrentUserID(c), dto)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	response.Created(c, ep)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.store.ListEndpointsByOwner(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	ep, err := h.svc.store.GetEndpointByID(c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if ep == nil {
		response.NotFound(c)
		return
	}
	if ep.UserID != middleware.CurrentUserID(c) {
		response.Forbidden(c)
		return
	}
	response.OK(c, ep)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateEndpointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), dto); err != nil {
		WriteServiceError(c, err)
		return
	}
	response.Message(c, "Endpoint updated successfully")
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		WriteServiceError(c, err)
		return
	}
	response.Message(c, "Endpoint deleted successfully")
}

// WriteServiceError maps service failures onto the API statuses.
func WriteServiceError(c *gin.Context, err error) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Msg)
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrEndpointNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c)
	case errors.Is(err, store.ErrPathConflict):
		response.Conflict(c, "path already exists")
	default:
		response.InternalError(c)
	}
}
