package entities

import "time"

// ReadingProgress stores the last known reading position for one user in
// one book. Location is an opaque serialized position whose encoding is
// renderer-specific: a structural locator for paginated-flow documents,
// a 1-based page number string for page-image documents.
//
// The composite primary key guarantees at most one row per (user, book);
// writes go through the progress repository's upsert only.
type ReadingProgress struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	BookID    string    `gorm:"primaryKey;size:36" json:"book_id"`
	Location  string    `gorm:"size:1024" json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}
