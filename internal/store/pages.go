package store

import (
	"errors"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"gorm.io/gorm"
)

// PageListItem is a page row joined with optional display fields.
type PageListItem struct {
	models.PageModel
	UserEmail   *string `json:"userEmail"   gorm:"column:user_email"`
	ProjectName *string `json:"projectName" gorm:"column:project_name"`
}

func (s *Store) CreatePage(page *models.PageModel) error {
	return translateErr(s.db.Create(page).Error)
}

func (s *Store) GetPageByID(id string) (*models.PageModel, error) {
	return s.firstPage("id = ?", id)
}

func (s *Store) GetPageByPath(path string) (*models.PageModel, error) {
	return s.firstPage("path = ?", path)
}

func (s *Store) firstPage(query string, arg string) (*models.PageModel, error) {
	var page models.PageModel
	if err := s.db.First(&page, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &page, nil
}

func (s *Store) ListPagesByOwner(owner string) ([]PageListItem, error) {
	return s.listPages(s.db.Where("pages.user_id = ?", owner))
}

func (s *Store) ListPagesByProject(projectID string) ([]PageListItem, error) {
	return s.listPages(s.db.Where("pages.project_id = ?", projectID))
}

func (s *Store) ListAllPages() ([]models.PageModel, error) {
	var items []models.PageModel
	err := s.db.Order("created_at ASC").Find(&items).Error
	return items, err
}

func (s *Store) listPages(tx *gorm.DB) ([]PageListItem, error) {
	items := []PageListItem{}
	err := tx.Model(&models.PageModel{}).
		Select("pages.*, users.email AS user_email, projects.name AS project_name").
		Joins("LEFT JOIN users ON users.id = pages.user_id").
		Joins("LEFT JOIN projects ON projects.id = pages.project_id").
		Order("pages.created_at DESC").
		Find(&items).Error
	return items, err
}

// UpdatePage reports whether a row matched (id AND owner).
func (s *Store) UpdatePage(id, owner string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	res := s.db.Model(&models.PageModel{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(updates)
	return res.RowsAffected > 0, translateErr(res.Error)
}

// DeletePage reports whether a row matched (id AND owner).
func (s *Store) DeletePage(id, owner string) (bool, error) {
	res := s.db.Delete(&models.PageModel{}, "id = ? AND user_id = ?", id, owner)
	return res.RowsAffected > 0, res.Error
}

// DeletePagesByProject removes all pages of a project and returns the removed
// paths for registry cleanup.
func (s *Store) DeletePagesByProject(projectID string) ([]string, error) {
	var paths []string
	if err := s.db.Model(&models.PageModel{}).
		Where("project_id = ?", projectID).
		Pluck("path", &paths).Error; err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}
	err := s.db.Delete(&models.PageModel{}, "project_id = ?", projectID).Error
	return paths, err
}
