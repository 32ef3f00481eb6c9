package project

import (
	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/middleware"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
	"github.com/kengoodridge/ai-chatbot/internal/store"
	"go.uber.org/zap"
)

type CreateProjectDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type Service struct {
	store   *store.Store
	reg     *registry.Registry
	cascade bool
	logger  *zap.Logger
}

func NewService(st *store.Store, reg *registry.Registry, cascade bool, logger *zap.Logger) *Service {
	return &Service{store: st, reg: reg, cascade: cascade, logger: logger.Named("projects")}
}

// Delete removes the project and, when cascade is on, its endpoints and
// pages, cleaning up their registrations.
func (s *Service) Delete(id, owner string) (bool, error) {
	matched, err := s.store.DeleteProject(id, owner)
	if err != nil || !matched {
		return matched, err
	}
	if !s.cascade {
		return true, nil
	}

	endpointPaths, err := s.store.DeleteEndpointsByProject(id)
	if err != nil {
		s.logger.Warn("cascade endpoint delete failed", zap.String("project", id), zap.Error(err))
	}
	pagePaths, err := s.store.DeletePagesByProject(id)
	if err != nil {
		s.logger.Warn("cascade page delete failed", zap.String("project", id), zap.Error(err))
	}
	for _, path := range endpointPaths {
		s.reg.Unregister(path)
	}
	for _, path := range pagePaths {
		s.reg.Unregister(path)
	}
	return true, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/projects", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil || dto.Name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	p, err := h.svc.store.CreateProject(middleware.CurrentUserID(c), dto.Name, dto.Description)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Created(c, p)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.store.ListProjects(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.store.GetProject(c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	if p.UserID != middleware.CurrentUserID(c) {
		response.Forbidden(c)
		return
	}
	response.OK(c, p)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if dto.Name == nil && dto.Description == nil {
		response.BadRequest(c, "no fields to update")
		return
	}
	if dto.Name != nil && *dto.Name == "" {
		response.BadRequest(c, "name must not be empty")
		return
	}

	owner := middleware.CurrentUserID(c)
	p, err := h.svc.store.GetProject(c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	if p.UserID != owner {
		response.Forbidden(c)
		return
	}

	matched, err := h.svc.store.UpdateProject(p.ID, owner, store.ProjectUpdate{
		Name:        dto.Name,
		Description: dto.Description,
	})
	if err != nil {
		response.InternalError(c)
		return
	}
	if !matched {
		response.NotFound(c)
		return
	}
	response.Message(c, "Project updated successfully")
}

func (h *Handler) delete(c *gin.Context) {
	owner := middleware.CurrentUserID(c)
	p, err := h.svc.store.GetProject(c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	if p.UserID != owner {
		response.Forbidden(c)
		return
	}

	if _, err := h.svc.Delete(p.ID, owner); err != nil {
		response.InternalError(c)
		return
	}
	response.Message(c, "Project deleted successfully")
}
