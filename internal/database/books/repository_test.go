package books

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CoreX20/library-app/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BorrowRecord{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

func createTestBook(t *testing.T, repo *Repository, title string, copies int) *entities.Book {
	book := &entities.Book{
		Title:       title,
		Author:      "Test Author",
		Genre:       "Fiction",
		TotalCopies: copies,
		FilePath:    "library/books/" + title + ".epub",
	}
	require.NoError(t, repo.CreateBook(book))
	return book
}

func TestRepository_CreateBook_DefaultsAvailableCopies(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 3)

	loaded, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.AvailableCopies)
	assert.NotEmpty(t, loaded.ID)
}

func TestRepository_GetBookByID_NotFound(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetBookByID("missing-id")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_UpdateBook(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 3)
	book.Title = "Dune Messiah"
	book.PageCount = 412

	require.NoError(t, repo.UpdateBook(book))

	loaded, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", loaded.Title)
	assert.Equal(t, 412, loaded.PageCount)
}

func TestRepository_DeleteBook(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 1)
	require.NoError(t, repo.DeleteBook(book.ID))

	_, err := repo.GetBookByID(book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	assert.ErrorIs(t, repo.DeleteBook("missing-id"), ErrBookNotFound)
}

func TestRepository_ListBooks_SearchAndPagination(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, repo, "Dune", 1)
	createTestBook(t, repo, "Dune Messiah", 1)
	createTestBook(t, repo, "Hyperion", 1)

	books, total, err := repo.ListBooks("Dune", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, books, 2)

	books, total, err = repo.ListBooks("", "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, books, 2)
}

func TestRepository_BorrowBook(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 2)

	record, err := repo.BorrowBook("user-1", book.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowStatusBorrowed, record.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), record.DueDate, time.Minute)

	loaded, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AvailableCopies)
}

func TestRepository_BorrowBook_NoCopiesAvailable(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 1)

	_, err := repo.BorrowBook("user-1", book.ID, 7)
	require.NoError(t, err)

	_, err = repo.BorrowBook("user-2", book.ID, 7)
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)
}

func TestRepository_BorrowBook_BookNotFound(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.BorrowBook("user-1", "missing-id", 7)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_ReturnBook(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 1)
	record, err := repo.BorrowBook("user-1", book.ID, 7)
	require.NoError(t, err)

	require.NoError(t, repo.ReturnBook(record.ID))

	loaded, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AvailableCopies)

	returned, err := repo.GetBorrowRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowStatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnedAt)

	assert.ErrorIs(t, repo.ReturnBook(record.ID), ErrAlreadyReturned)
}

func TestRepository_GetBorrowsForUser(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book1 := createTestBook(t, repo, "Dune", 1)
	book2 := createTestBook(t, repo, "Hyperion", 1)

	_, err := repo.BorrowBook("user-1", book1.ID, 7)
	require.NoError(t, err)
	_, err = repo.BorrowBook("user-1", book2.ID, 7)
	require.NoError(t, err)
	_, err = repo.BorrowBook("user-2", book1.ID, 7)
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)

	records, err := repo.GetBorrowsForUser("user-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NotEmpty(t, records[0].Book.Title)
}

func TestRepository_MarkOverdueBorrows(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 2)

	record, err := repo.BorrowBook("user-1", book.ID, 7)
	require.NoError(t, err)
	_, err = repo.BorrowBook("user-2", book.ID, 7)
	require.NoError(t, err)

	// Backdate one record past its due date
	require.NoError(t, db.Model(&entities.BorrowRecord{}).
		Where("id = ?", record.ID).
		Update("due_date", time.Now().Add(-24*time.Hour)).Error)

	changed, err := repo.MarkOverdueBorrows(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	overdue, err := repo.GetBorrowRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowStatusOverdue, overdue.Status)

	// Second sweep finds nothing new
	changed, err = repo.MarkOverdueBorrows(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}
