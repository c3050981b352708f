// Package books provides database operations for the book catalog and
// the borrowing lifecycle.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(id)
//	record, err := repo.BorrowBook(userID, bookID, 7)
package books

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/CoreX20/library-app/internal/entities"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrNoCopiesAvailable  = errors.New("book is not available for borrowing")
	ErrRecordNotFound     = errors.New("borrow record not found")
	ErrAlreadyReturned    = errors.New("book already returned")
)

// Repository handles all catalog and borrowing database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Catalog ---

// CreateBook inserts a new catalog entry. AvailableCopies defaults to
// TotalCopies when left unset.
func (r *Repository) CreateBook(book *entities.Book) error {
	if book.AvailableCopies == 0 && book.TotalCopies > 0 {
		book.AvailableCopies = book.TotalCopies
	}
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// UpdateBook saves changes to an existing catalog entry.
func (r *Repository) UpdateBook(book *entities.Book) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
		"title":            book.Title,
		"author":           book.Author,
		"genre":            book.Genre,
		"description":      book.Description,
		"cover_url":        book.CoverURL,
		"file_path":        book.FilePath,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"page_count":       book.PageCount,
	})
	if result.Error != nil {
		return fmt.Errorf("update book: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// DeleteBook soft-deletes a catalog entry.
func (r *Repository) DeleteBook(id string) error {
	result := r.db.Delete(&entities.Book{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete book: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetBookByID retrieves a single book.
func (r *Repository) GetBookByID(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// ListBooks returns books filtered by an optional title/author search term
// and genre, with pagination.
func (r *Repository) ListBooks(search, genre string, limit, offset int) ([]entities.Book, int64, error) {
	query := r.db.Model(&entities.Book{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", like, like)
	}
	if genre != "" {
		query = query.Where("genre = ?", genre)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []entities.Book
	query = query.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&books).Error
	return books, total, err
}

// --- Borrowing ---

// BorrowBook checks availability, inserts a borrow record and decrements
// the available copy count, all inside one transaction so a failed insert
// never leaves the copy count off by one.
func (r *Repository) BorrowBook(userID, bookID string, loanPeriodDays int) (*entities.BorrowRecord, error) {
	var record *entities.BorrowRecord

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if book.AvailableCopies <= 0 {
			return ErrNoCopiesAvailable
		}

		now := time.Now()
		record = &entities.BorrowRecord{
			UserID:     userID,
			BookID:     bookID,
			BorrowedAt: now,
			DueDate:    now.AddDate(0, 0, loanPeriodDays),
			Status:     entities.BorrowStatusBorrowed,
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create borrow record: %w", err)
		}

		return tx.Model(&entities.Book{}).
			Where("id = ?", bookID).
			Update("available_copies", book.AvailableCopies-1).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReturnBook marks a borrow record as returned and restores the copy count.
func (r *Repository) ReturnBook(recordID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var record entities.BorrowRecord
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if record.Status == entities.BorrowStatusReturned {
			return ErrAlreadyReturned
		}

		now := time.Now()
		err := tx.Model(&record).Updates(map[string]any{
			"status":      entities.BorrowStatusReturned,
			"returned_at": now,
		}).Error
		if err != nil {
			return err
		}

		return tx.Model(&entities.Book{}).
			Where("id = ?", record.BookID).
			Update("available_copies", gorm.Expr("available_copies + 1")).Error
	})
}

// GetBorrowRecord retrieves a single borrow record.
func (r *Repository) GetBorrowRecord(id string) (*entities.BorrowRecord, error) {
	var record entities.BorrowRecord
	err := r.db.Preload("Book").First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetBorrowsForUser returns a user's borrow records, most recent first.
func (r *Repository) GetBorrowsForUser(userID string) ([]entities.BorrowRecord, error) {
	var records []entities.BorrowRecord
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("borrowed_at DESC").
		Find(&records).Error
	return records, err
}

// MarkOverdueBorrows flips BORROWED records whose due date has passed to
// OVERDUE and returns the number of records changed.
func (r *Repository) MarkOverdueBorrows(now time.Time) (int64, error) {
	result := r.db.Model(&entities.BorrowRecord{}).
		Where("status = ? AND due_date < ?", entities.BorrowStatusBorrowed, now).
		Update("status", entities.BorrowStatusOverdue)
	if result.Error != nil {
		return 0, fmt.Errorf("mark overdue borrows: %w", result.Error)
	}
	return result.RowsAffected, nil
}
