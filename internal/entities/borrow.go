package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BorrowStatus string

const (
	BorrowStatusBorrowed BorrowStatus = "BORROWED"
	BorrowStatusReturned BorrowStatus = "RETURNED"
	BorrowStatusOverdue  BorrowStatus = "OVERDUE"
)

// BorrowRecord tracks a single loan of a book copy to a user.
type BorrowRecord struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	UserID     string       `gorm:"index;size:36" json:"user_id"`
	BookID     string       `gorm:"index;size:36" json:"book_id"`
	User       User         `gorm:"foreignKey:UserID" json:"-"`
	Book       Book         `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BorrowedAt time.Time    `json:"borrowed_at"`
	DueDate    time.Time    `gorm:"index" json:"due_date"`
	ReturnedAt *time.Time   `json:"returned_at,omitempty"`
	Status     BorrowStatus `gorm:"index;size:20" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (r *BorrowRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
