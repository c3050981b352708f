package http

import (
	"time"

	"github.com/CoreX20/library-app/internal/entities"
)

// This file consolidates the store interface definitions used by HTTP
// controllers. Each controller declares the narrow interface it needs;
// the repositories under internal/database satisfy them.

// BookStore covers catalog management and lending.
type BookStore interface {
	CreateBook(book *entities.Book) error
	UpdateBook(book *entities.Book) error
	DeleteBook(id string) error
	GetBookByID(id string) (*entities.Book, error)
	ListBooks(search, genre string, limit, offset int) ([]entities.Book, int64, error)

	BorrowBook(userID, bookID string, loanPeriodDays int) (*entities.BorrowRecord, error)
	ReturnBook(recordID string) error
	GetBorrowRecord(id string) (*entities.BorrowRecord, error)
	GetBorrowsForUser(userID string) ([]entities.BorrowRecord, error)
}

// ProgressStore covers the persisted reading positions.
type ProgressStore interface {
	Fetch(userID, bookID string) (string, error)
	Delete(userID, bookID string) error
}

// AuditLogger records domain events for the audit trail.
type AuditLogger interface {
	LogEvent(event *entities.AuditEvent) error
	GetEvents(userID string, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, userID string, limit, offset int) ([]entities.AuditEvent, int64, error)
	DeleteOldEvents(olderThan time.Time) (int64, error)
}
