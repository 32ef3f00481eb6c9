package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/routepath"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
	"github.com/kengoodridge/ai-chatbot/internal/sandbox"
	"github.com/kengoodridge/ai-chatbot/internal/store"
	"go.uber.org/zap"
)

// Typed failures the HTTP layer maps onto statuses.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrNotOwner         = errors.New("not the resource owner")
)

// ValidationError is a 400-class failure with a caller-facing message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type CreateEndpointDTO struct {
	Path       string   `json:"path"`
	Code       string   `json:"code"`
	Parameters []string `json:"parameters"`
	HTTPMethod string   `json:"httpMethod"`
	Language   string   `json:"language"`
	ProjectID  string   `json:"projectId"`
}

type UpdateEndpointDTO struct {
	Path       *string   `json:"path"`
	Code       *string   `json:"code"`
	Parameters *[]string `json:"parameters"`
	HTTPMethod *string   `json:"httpMethod"`
	Language   *string   `json:"language"`
}

// Service performs owner-checked endpoint mutations, writing to the store
// first and then reflecting the change into the registry. A registry failure
// after a successful write is logged, not surfaced; the registry reconciles
// on the next refresh or restart.
type Service struct {
	store  *store.Store
	reg    *registry.Registry
	logger *zap.Logger
}

func NewService(st *store.Store, reg *registry.Registry, logger *zap.Logger) *Service {
	return &Service{store: st, reg: reg, logger: logger.Named("endpoints")}
}

func (s *Service) Create(owner string, dto CreateEndpointDTO) (*models.EndpointModel, error) {
	if strings.TrimSpace(dto.Path) == "" {
		return nil, invalid("path is required")
	}
	if strings.TrimSpace(dto.Code) == "" {
		return nil, invalid("code is required")
	}
	if strings.TrimSpace(dto.ProjectID) == "" {
		return nil, invalid("projectId is required")
	}

	method, err := normalizeMethod(dto.HTTPMethod)
	if err != nil {
		return nil, err
	}
	language, err := normalizeLanguage(dto.Language)
	if err != nil {
		return nil, err
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

	fullPath := routepath.EndpointPath(project.NameSlug(), dto.Path)
	if routepath.IsReserved(fullPath) {
		return nil, invalid("path %q collides with a reserved system route", fullPath)
	}

	ep := &models.EndpointModel{
		Path:       fullPath,
		Parameters: models.ParamList(dto.Parameters),
		Code:       dto.Code,
		Language:   models.EndpointLanguage(language),
		HTTPMethod: method,
		ProjectID:  project.ID,
		UserID:     owner,
	}
	if err := s.store.CreateEndpoint(ep); err != nil {
		return nil, err
	}

	if regErr := s.reg.RegisterEndpoint(ep); regErr != nil {
		var compileErr *sandbox.CompileError
		if !errors.As(regErr, &compileErr) {
			s.logger.Warn("endpoint stored but not registered",
				zap.String("path", ep.Path), zap.Error(regErr))
		}
	}
	return ep, nil
}

func (s *Service) Update(id, owner string, dto UpdateEndpointDTO) error {
	if dto.Path == nil && dto.Code == nil && dto.Parameters == nil &&
		dto.HTTPMethod == nil && dto.Language == nil {
		return invalid("no fields to update")
	}

	ep, err := s.store.GetEndpointByID(id)
	if err != nil {
		return err
	}
	if ep == nil {
		return ErrEndpointNotFound
	}
	if ep.UserID != owner {
		return ErrNotOwner
	}

	updates := map[string]interface{}{}
	newPath := ep.Path

	if dto.Path != nil {
		slug, err := s.projectSlug(ep)
		if err != nil {
			return err
		}
		newPath = routepath.EndpointPath(slug, *dto.Path)
		if routepath.IsReserved(newPath) {
			return invalid("path %q collides with a reserved system route", newPath)
		}
		updates["path"] = newPath
	}
	if dto.Code != nil {
		if strings.TrimSpace(*dto.Code) == "" {
			return invalid("code must not be empty")
		}
		updates["code"] = *dto.Code
	}
	if dto.Parameters != nil {
		updates["parameters"] = models.ParamList(*dto.Parameters)
	}
	if dto.HTTPMethod != nil {
		method, err := normalizeMethod(*dto.HTTPMethod)
		if err != nil {
			return err
		}
		updates["http_method"] = method
	}
	if dto.Language != nil {
		language, err := normalizeLanguage(*dto.Language)
		if err != nil {
			return err
		}
		updates["language"] = language
	}

	matched, err := s.store.UpdateEndpoint(id, owner, updates)
	if err != nil {
		return err
	}
	if !matched {
		return ErrEndpointNotFound
	}

	if newPath != ep.Path {
		s.reg.Unregister(ep.Path)
	}
	if err := s.reg.RefreshEndpoint(newPath); err != nil {
		var compileErr *sandbox.CompileError
		if !errors.As(err, &compileErr) {
			s.logger.Warn("endpoint updated but not re-registered",
				zap.String("path", newPath), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) Delete(id, owner string) error {
	ep, err := s.store.GetEndpointByID(id)
	if err != nil {
		return err
	}
	if ep == nil {
		return ErrEndpointNotFound
	}
	if ep.UserID != owner {
		return ErrNotOwner
	}

	matched, err := s.store.DeleteEndpoint(id, owner)
	if err != nil {
		return err
	}
	if !matched {
		return ErrEndpointNotFound
	}
	s.reg.Unregister(ep.Path)
	return nil
}

// projectSlug resolves the slug used for path composition; when the project
// row is gone (non-cascade orphan) the slug is recovered from the stored
// path.
func (s *Service) projectSlug(ep *models.EndpointModel) (string, error) {
	project, err := s.store.GetProject(ep.ProjectID)
	if err != nil {
		return "", err
	}
	if project != nil {
		return project.NameSlug(), nil
	}
	rest := strings.TrimPrefix(ep.Path, "/api/")
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i], nil
	}
	return rest, nil
}

func normalizeMethod(raw string) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(raw))
	switch method {
	case "":
		return "GET", nil
	case "GET", "POST":
		return method, nil
	default:
		return "", invalid("httpMethod must be GET or POST")
	}
}

func normalizeLanguage(raw string) (string, error) {
	language := strings.ToLower(strings.TrimSpace(raw))
	switch language {
	case "":
		return string(models.LanguageJavaScript), nil
	case string(models.LanguageJavaScript), string(models.LanguagePython):
		return language, nil
	default:
		return "", invalid("language must be javascript or python")
	}
}
