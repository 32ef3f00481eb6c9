package store

import (
	"errors"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"gorm.io/gorm"
)

// ProjectUpdate carries the optional fields of a project update.
type ProjectUpdate struct {
	Name        *string
	Description *string
}

func (s *Store) CreateProject(owner, name, description string) (*models.ProjectModel, error) {
	p := models.ProjectModel{
		Name:        name,
		Description: description,
		UserID:      owner,
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns nil, nil when the project does not exist.
func (s *Store) GetProject(id string) (*models.ProjectModel, error) {
	var p models.ProjectModel
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProjects(owner string) ([]models.ProjectModel, error) {
	items := []models.ProjectModel{}
	err := s.db.Where("user_id = ?", owner).Order("created_at DESC").Find(&items).Error
	return items, err
}

// UpdateProject reports whether a row matched (id AND owner).
func (s *Store) UpdateProject(id, owner string, upd ProjectUpdate) (bool, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if len(updates) == 0 {
		return false, nil
	}
	res := s.db.Model(&models.ProjectModel{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// DeleteProject reports whether a row matched (id AND owner).
func (s *Store) DeleteProject(id, owner string) (bool, error) {
	res := s.db.Delete(&models.ProjectModel{}, "id = ? AND user_id = ?", id, owner)
	return res.RowsAffected > 0, res.Error
}
