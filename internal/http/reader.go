package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CoreX20/library-app/internal/assets"
	"github.com/CoreX20/library-app/internal/database/books"
	"github.com/CoreX20/library-app/internal/database/progress"
	"github.com/CoreX20/library-app/internal/reader"
	"github.com/CoreX20/library-app/internal/reader/render"
)

// ReaderController exposes the reading-session lifecycle. Opening a
// session is synchronous: by the time the response is written the
// document is located, the format detected and the starting position
// resolved, so the client renders immediately or gets a definite error.
type ReaderController struct {
	manager  *reader.Manager
	store    BookStore
	progress ProgressStore
}

func NewReaderController(manager *reader.Manager, store BookStore, progress ProgressStore) *ReaderController {
	return &ReaderController{
		manager:  manager,
		store:    store,
		progress: progress,
	}
}

// sessionResponse is the wire shape of an open reading session.
type sessionResponse struct {
	ID       string `json:"id"`
	BookID   string `json:"book_id"`
	State    string `json:"state"`
	Format   string `json:"format"`
	URL      string `json:"url,omitempty"`
	Position string `json:"position"`
	Label    string `json:"label,omitempty"`
}

func newSessionResponse(s *reader.Session) sessionResponse {
	return sessionResponse{
		ID:       s.ID,
		BookID:   s.BookID,
		State:    string(s.State()),
		Format:   s.Format().String(),
		URL:      s.DocumentURL(),
		Position: s.Position(),
		Label:    s.Label(),
	}
}

// OpenSession starts reading a book for the current user.
// POST /api/reader/sessions {"book_id": "..."}
func (rc *ReaderController) OpenSession(c *gin.Context) {
	var req struct {
		BookID string `json:"book_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "book_id is required")
		return
	}

	book, err := rc.store.GetBookByID(req.BookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "open reader session")
		return
	}

	session, err := rc.manager.Open(c.Request.Context(), GetUserID(c), book)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrFileNotFound), errors.Is(err, reader.ErrInvalidFilePath):
			respondError(c, http.StatusNotFound, "book not available")
		case errors.Is(err, assets.ErrUpstream):
			respondError(c, http.StatusBadGateway, "asset host unavailable")
		case errors.Is(err, reader.ErrUnsupportedFormat):
			respondError(c, http.StatusUnprocessableEntity, "unsupported book format")
		default:
			respondInternalError(c, err, "open reader session")
		}
		return
	}

	respondCreated(c, newSessionResponse(session))
}

// GetSession returns the current state of a session.
// GET /api/reader/sessions/:id
func (rc *ReaderController) GetSession(c *gin.Context) {
	session, ok := rc.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// UpdatePosition ingests a position-change event from the client.
// POST /api/reader/sessions/:id/position {"position": "..."}
func (rc *ReaderController) UpdatePosition(c *gin.Context) {
	session, ok := rc.ownedSession(c)
	if !ok {
		return
	}

	var req struct {
		Position string `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "position is required")
		return
	}

	if err := session.Navigate(req.Position); err != nil {
		switch {
		case errors.Is(err, render.ErrInvalidPosition):
			respondBadRequest(c, "invalid position")
		case errors.Is(err, reader.ErrSessionNotActive):
			respondError(c, http.StatusConflict, "session is not active")
		default:
			respondInternalError(c, err, "update position")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"position": session.Position(),
		"label":    session.Label(),
	})
}

// CloseSession terminates a session.
// DELETE /api/reader/sessions/:id
func (rc *ReaderController) CloseSession(c *gin.Context) {
	session, ok := rc.ownedSession(c)
	if !ok {
		return
	}

	if err := rc.manager.Close(session.ID); err != nil {
		respondInternalError(c, err, "close reader session")
		return
	}
	respondSuccess(c, "session closed")
}

// GetProgress returns the stored reading position for a book.
// GET /api/books/:id/progress
func (rc *ReaderController) GetProgress(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	location, err := rc.progress.Fetch(GetUserID(c), bookID)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			respondNotFound(c, "reading progress")
			return
		}
		respondInternalError(c, err, "get reading progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": bookID, "location": location})
}

// DeleteProgress discards the stored reading position for a book, so
// the next session starts from the beginning.
// DELETE /api/books/:id/progress
func (rc *ReaderController) DeleteProgress(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := rc.progress.Delete(GetUserID(c), bookID); err != nil {
		respondInternalError(c, err, "delete reading progress")
		return
	}
	respondSuccess(c, "reading progress cleared")
}

// ownedSession resolves the :id parameter to a session owned by the
// current user. Sessions of other users are reported as not found.
func (rc *ReaderController) ownedSession(c *gin.Context) (*reader.Session, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	session, err := rc.manager.Get(id)
	if err != nil || session.UserID != GetUserID(c) {
		respondNotFound(c, "reader session")
		return nil, false
	}
	return session, true
}
