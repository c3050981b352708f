package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalog entry. FilePath is an opaque path into the remote
// asset host ("bucket/folder/.../file.epub"); the reader subsystem splits
// it to locate the actual file and never interprets it beyond that.
type Book struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	Title           string         `gorm:"index;size:512" json:"title"`
	Author          string         `gorm:"index;size:256" json:"author"`
	Genre           string         `gorm:"index;size:100" json:"genre,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	CoverURL        string         `gorm:"size:2048" json:"cover_url,omitempty"`
	FilePath        string         `gorm:"size:1024" json:"file_path,omitempty"`
	TotalCopies     int            `json:"total_copies"`
	AvailableCopies int            `json:"available_copies"`
	PageCount       int            `json:"page_count,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
