package page

import (
	"errors"
	"strings"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/routepath"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
	"github.com/kengoodridge/ai-chatbot/internal/store"
	"go.uber.org/zap"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrNotOwner        = errors.New("not the resource owner")
)

// ValidationError is a 400-class failure with a caller-facing message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type CreatePageDTO struct {
	Path        string `json:"path"`
	HTMLContent string `json:"htmlContent"`
	ProjectID   string `json:"projectId"`

	// Reanchor relocates an /api/-anchored proposed path under the project
	// slug instead of rejecting it. Set by the generator flow only.
	Reanchor bool `json:"-"`
}

type UpdatePageDTO struct {
	Path        *string `json:"path"`
	HTMLContent *string `json:"htmlContent"`
}

// Service performs owner-checked page mutations; store first, then registry.
type Service struct {
	store  *store.Store
	reg    *registry.Registry
	logger *zap.Logger
}

func NewService(st *store.Store, reg *registry.Registry, logger *zap.Logger) *Service {
	return &Service{store: st, reg: reg, logger: logger.Named("pages")}
}

func (s *Service) Create(owner string, dto CreatePageDTO) (*models.PageModel, error) {
	if strings.TrimSpace(dto.Path) == "" {
		return nil, &ValidationError{Msg: "path is required"}
	}
	if dto.HTMLContent == "" {
		return nil, &ValidationError{Msg: "htmlContent is required"}
	}
	if strings.TrimSpace(dto.ProjectID) == "" {
		return nil, &ValidationError{Msg: "projectId is required"}
	}

	project, err := s.store.GetProject(dto.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if project.UserID != owner {
		return nil, ErrNotOwner
	}

	fullPath, err := s.composePath(project.NameSlug(), dto.Path, dto.Reanchor)
	if err != nil {
		return nil, err
	}

	page := &models.PageModel{
		Path:        fullPath,
		HTMLContent: dto.HTMLContent,
		ProjectID:   project.ID,
		UserID:      owner,
	}
	if err := s.store.CreatePage(page); err != nil {
		return nil, err
	}

	s.reg.RegisterPage(page.Path, page.HTMLContent)
	return page, nil
}

func (s *Service) Update(id, owner string, dto UpdatePageDTO) error {
	if dto.Path == nil && dto.HTMLContent == nil {
		return &ValidationError{Msg: "no fields to update"}
	}

	page, err := s.store.GetPageByID(id)
	if err != nil {
		return err
	}
	if page == nil {
		return ErrPageNotFound
	}
	if page.UserID != owner {
		return ErrNotOwner
	}

	updates := map[string]interface{}{}
	newPath := page.Path

	if dto.Path != nil {
		slug, err := s.projectSlug(page)
		if err != nil {
			return err
		}
		newPath, err = s.composePath(slug, *dto.Path, false)
		if err != nil {
			return err
		}
		updates["path"] = newPath
	}
	if dto.HTMLContent != nil {
		if *dto.HTMLContent == "" {
			return &ValidationError{Msg: "htmlContent must not be empty"}
		}
		updates["html_content"] = *dto.HTMLContent
	}

	matched, err := s.store.UpdatePage(id, owner, updates)
	if err != nil {
		return err
	}
	if !matched {
		return ErrPageNotFound
	}

	if newPath != page.Path {
		s.reg.Unregister(page.Path)
	}
	if err := s.reg.RefreshPage(newPath); err != nil {
		s.logger.Warn("page updated but not re-registered",
			zap.String("path", newPath), zap.Error(err))
	}
	return nil
}

func (s *Service) Delete(id, owner string) error {
	page, err := s.store.GetPageByID(id)
	if err != nil {
		return err
	}
	if page == nil {
		return ErrPageNotFound
	}
	if page.UserID != owner {
		return ErrNotOwner
	}

	matched, err := s.store.DeletePage(id, owner)
	if err != nil {
		return err
	}
	if !matched {
		return ErrPageNotFound
	}
	s.reg.Unregister(page.Path)
	return nil
}

// composePath builds "/<slug>/<rest>". Paths proposed under /api/ are
// rejected, unless reanchor relocates them under the slug.
func (s *Service) composePath(slug, userPath string, reanchor bool) (string, error) {
	if routepath.IsAPIPath(userPath) {
		if !reanchor {
			return "", &ValidationError{Msg: "pages may not live under /api/"}
		}
		return routepath.ReanchorPagePath(slug, userPath), nil
	}
	return routepath.PagePath(slug, userPath), nil
}

func (s *Service) projectSlug(page *models.PageModel) (string, error) {
	project, err := s.store.GetProject(page.ProjectID)
	if err != nil {
		return "", err
	}
	if project != nil {
		return project.NameSlug(), nil
	}
	rest := strings.TrimPrefix(page.Path, "/")
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i], nil
	}
	return rest, nil
}
