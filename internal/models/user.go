package models

// UserModel represents a registered owner of projects.
type UserModel struct {
	Base
	Email    string `json:"email"    gorm:"uniqueIndex;not null"`
	Password string `json:"-"        gorm:"not null"`
	IsAdmin  bool   `json:"isAdmin"  gorm:"default:false"`
}

func (UserModel) TableName() string { return "users" }
