// Package store is the single source of truth for projects, endpoints and
// pages. Path uniqueness is enforced by database constraints; every mutation
// scoped to an owner reports whether a row matched.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrPathConflict is returned when a create collides with an existing path.
var ErrPathConflict = errors.New("path already exists")

type Store struct{ db *gorm.DB }

func New(db *gorm.DB) *Store { return &Store{db: db} }

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrPathConflict
	}
	return err
}
