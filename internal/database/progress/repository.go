// Package progress provides database operations for reading-progress storage.
//
// Each (user, book) pair holds at most one row; writes go through Upsert.
//
// # Usage
//
//	repo := progress.NewRepository(db)
//	location, err := repo.Fetch(userID, bookID)
package progress

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/CoreX20/library-app/internal/entities"
)

// ErrNotFound is returned by Fetch when no progress has been recorded yet.
var ErrNotFound = errors.New("reading progress not found")

// Repository handles all reading-progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Fetch returns the stored location for (userID, bookID), or ErrNotFound.
func (r *Repository) Fetch(userID, bookID string) (string, error) {
	var record entities.ReadingProgress
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetch reading progress: %w", err)
	}
	return record.Location, nil
}

// Upsert stores location for (userID, bookID), inserting a fresh row when
// none exists and updating the existing one otherwise.
//
// The check-then-write sequence is not guarded by a transaction: two
// concurrent upserts for the same key are last-write-wins, with no
// conflict detection. Callers tolerate this for position data.
func (r *Repository) Upsert(userID, bookID, location string) error {
	var existing entities.ReadingProgress
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := entities.ReadingProgress{
			UserID:    userID,
			BookID:    bookID,
			Location:  location,
			UpdatedAt: time.Now(),
		}
		if err := r.db.Create(&record).Error; err != nil {
			return fmt.Errorf("insert reading progress: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check reading progress: %w", err)
	}

	err = r.db.Model(&entities.ReadingProgress{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Updates(map[string]any{
			"location":   location,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("update reading progress: %w", err)
	}
	return nil
}

// Delete removes the progress row for (userID, bookID). Missing rows are not an error.
func (r *Repository) Delete(userID, bookID string) error {
	return r.db.Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.ReadingProgress{}).Error
}

// CountForUser returns the number of books the user has progress in.
func (r *Repository) CountForUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.ReadingProgress{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
