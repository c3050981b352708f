package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CoreX20/library-app/internal/database/books"
	"github.com/CoreX20/library-app/internal/entities"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BooksController handles catalog management and the borrowing lifecycle.
type BooksController struct {
	store          BookStore
	audit          AuditLogger
	loanPeriodDays int
}

func NewBooksController(store BookStore, audit AuditLogger, loanPeriodDays int) *BooksController {
	return &BooksController{
		store:          store,
		audit:          audit,
		loanPeriodDays: loanPeriodDays,
	}
}

// bookRequest is the payload for creating and updating catalog entries.
type bookRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
	FilePath    string `json:"file_path"`
	TotalCopies int    `json:"total_copies"`
	PageCount   int    `json:"page_count"`
}

// ListBooks returns catalog entries filtered by search term and genre.
// GET /api/books?q=&genre=&limit=&offset=
func (bc *BooksController) ListBooks(c *gin.Context) {
	limit, offset := parsePagination(c)
	search := c.Query("q")
	genre := c.Query("genre")

	items, total, err := bc.store.ListBooks(search, genre, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	})
}

// GetBook returns a single catalog entry.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// CreateBook adds a catalog entry. Admin only.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book := &entities.Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		FilePath:    req.FilePath,
		TotalCopies: req.TotalCopies,
		PageCount:   req.PageCount,
	}
	if err := bc.store.CreateBook(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	bc.logEvent(c, entities.AuditEventCatalog, "book_create", book.ID,
		fmt.Sprintf("Added %q by %s", book.Title, book.Author))
	respondCreated(c, book)
}

// UpdateBook replaces a catalog entry's fields. Admin only.
// PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	existing, err := bc.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}

	existing.Title = req.Title
	existing.Author = req.Author
	existing.Genre = req.Genre
	existing.Description = req.Description
	existing.CoverURL = req.CoverURL
	existing.FilePath = req.FilePath
	existing.PageCount = req.PageCount
	if req.TotalCopies != existing.TotalCopies {
		// Keep the number of copies out on loan constant when the
		// total changes, flooring availability at zero.
		onLoan := existing.TotalCopies - existing.AvailableCopies
		existing.TotalCopies = req.TotalCopies
		existing.AvailableCopies = req.TotalCopies - onLoan
		if existing.AvailableCopies < 0 {
			existing.AvailableCopies = 0
		}
	}

	if err := bc.store.UpdateBook(existing); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}

	bc.logEvent(c, entities.AuditEventCatalog, "book_update", existing.ID,
		fmt.Sprintf("Updated %q", existing.Title))
	c.JSON(http.StatusOK, existing)
}

// DeleteBook removes a catalog entry. Admin only.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}

	bc.logEvent(c, entities.AuditEventCatalog, "book_delete", id, "Removed book")
	respondSuccess(c, "book deleted")
}

// BorrowBook lends a copy to the current user.
// POST /api/books/:id/borrow
func (bc *BooksController) BorrowBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	record, err := bc.store.BorrowBook(userID, bookID, bc.loanPeriodDays)
	if err != nil {
		switch {
		case errors.Is(err, books.ErrBookNotFound):
			respondNotFound(c, "book")
		case errors.Is(err, books.ErrNoCopiesAvailable):
			respondError(c, http.StatusConflict, "no copies available")
		default:
			respondInternalError(c, err, "borrow book")
		}
		return
	}

	bc.logEvent(c, entities.AuditEventBorrow, "borrow", record.ID,
		fmt.Sprintf("Borrowed book %s, due %s", bookID, record.DueDate.Format("2006-01-02")))
	respondCreated(c, record)
}

// ReturnBook ends a loan. Users can only return their own loans;
// admins can return any.
// POST /api/borrows/:id/return
func (bc *BooksController) ReturnBook(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := bc.store.GetBorrowRecord(recordID)
	if err != nil {
		if errors.Is(err, books.ErrRecordNotFound) {
			respondNotFound(c, "borrow record")
			return
		}
		respondInternalError(c, err, "return book")
		return
	}
	if record.UserID != GetUserID(c) && !isAdmin(c) {
		respondNotFound(c, "borrow record")
		return
	}

	if err := bc.store.ReturnBook(recordID); err != nil {
		switch {
		case errors.Is(err, books.ErrRecordNotFound):
			respondNotFound(c, "borrow record")
		case errors.Is(err, books.ErrAlreadyReturned):
			respondError(c, http.StatusConflict, "book already returned")
		default:
			respondInternalError(c, err, "return book")
		}
		return
	}

	bc.logEvent(c, entities.AuditEventBorrow, "return", recordID, "Returned book")
	respondSuccess(c, "book returned")
}

// ListBorrows returns the current user's loans, most recent first.
// GET /api/borrows
func (bc *BooksController) ListBorrows(c *gin.Context) {
	records, err := bc.store.GetBorrowsForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list borrows")
		return
	}
	c.JSON(http.StatusOK, records)
}

// logEvent records an audit event. Audit failures are logged and never
// surface to the request.
func (bc *BooksController) logEvent(c *gin.Context, eventType entities.AuditEventType, action, entityID, description string) {
	if bc.audit == nil {
		return
	}
	event := &entities.AuditEvent{
		UserID:      GetUserID(c),
		EventType:   eventType,
		Action:      action,
		Description: description,
		EntityType:  "book",
		EntityID:    entityID,
		Status:      entities.AuditStatusSuccess,
	}
	if eventType == entities.AuditEventBorrow {
		event.EntityType = "borrow_record"
	}
	if err := bc.audit.LogEvent(event); err != nil {
		log.Printf("Failed to log audit event %s: %v", action, err)
	}
}

// parsePagination reads limit/offset query parameters with sane bounds.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
