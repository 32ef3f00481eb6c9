package models

import "strings"

// ProjectModel is a user-owned namespace grouping endpoints and pages.
type ProjectModel struct {
	Base
	Name        string `json:"name"        gorm:"not null"`
	Description string `json:"description"`
	UserID      string `json:"userId"      gorm:"index;not null"`
}

func (ProjectModel) TableName() string { return "projects" }

// NameSlug lowercases the project name and collapses runs of whitespace to '-'.
// It prefixes every endpoint and page path owned by the project.
func (p *ProjectModel) NameSlug() string {
	return Slugify(p.Name)
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
