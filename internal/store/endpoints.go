package store

import (
	"errors"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"gorm.io/gorm"
)

// EndpointListItem is an endpoint row joined with optional display fields.
// The joined columns stay nullable so partial rows never fail decoding.
type EndpointListItem struct {
	models.EndpointModel
	UserEmail   *string `json:"userEmail"   gorm:"column:user_email"`
	ProjectName *string `json:"projectName" gorm:"column:project_name"`
}

func (s *Store) CreateEndpoint(ep *models.EndpointModel) error {
	return translateErr(s.db.Create(ep).Error)
}

func (s *Store) GetEndpointByID(id string) (*models.EndpointModel, error) {
	return s.firstEndpoint("id = ?", id)
}

func (s *Store) GetEndpointByPath(path string) (*models.EndpointModel, error) {
	return s.firstEndpoint("path = ?", path)
}

func (s *Store) firstEndpoint(query string, arg string) (*models.EndpointModel, error) {
	var ep models.EndpointModel
	if err := s.db.First(&ep, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ep, nil
}

func (s *Store) ListEndpointsByOwner(owner string) ([]EndpointListItem, error) {
	return s.listEndpoints(s.db.Where("endpoints.user_id = ?", owner))
}

func (s *Store) ListEndpointsByProject(projectID string) ([]EndpointListItem, error) {
	return s.listEndpoints(s.db.Where("endpoints.project_id = ?", projectID))
}

func (s *Store) ListAllEndpoints() ([]models.EndpointModel, error) {
	var items []models.EndpointModel
	err := s.db.Order("created_at ASC").Find(&items).Error
	return items, err
}

func (s *Store) listEndpoints(tx *gorm.DB) ([]EndpointListItem, error) {
	items := []EndpointListItem{}
	err := tx.Model(&models.EndpointModel{}).
		Select("endpoints.*, users.email AS user_email, projects.name AS project_name").
		Joins("LEFT JOIN users ON users.id = endpoints.user_id").
		Joins("LEFT JOIN projects ON projects.id = endpoints.project_id").
		Order("endpoints.created_at DESC").
		Find(&items).Error
	return items, err
}

// UpdateEndpoint reports whether a row matched (id AND owner).
func (s *Store) UpdateEndpoint(id, owner string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	res := s.db.Model(&models.EndpointModel{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(updates)
	return res.RowsAffected > 0, translateErr(res.Error)
}

// DeleteEndpoint reports whether a row matched (id AND owner).
func (s *Store) DeleteEndpoint(id, owner string) (bool, error) {
	res := s.db.Delete(&models.EndpointModel{}, "id = ? AND user_id = ?", id, owner)
	return res.RowsAffected > 0, res.Error
}

// DeleteEndpointsByProject removes all endpoints of a project and returns the
// paths that were removed, for registry cleanup.
func (s *Store) DeleteEndpointsByProject(projectID string) ([]string, error) {
	var paths []string
	if err := s.db.Model(&models.EndpointModel{}).
		Where("project_id = ?", projectID).
		Pluck("path", &paths).Error; err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}
	err := s.db.Delete(&models.EndpointModel{}, "project_id = ?", projectID).Error
	return paths, err
}
