package reader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CoreX20/library-app/internal/assets"
	"github.com/CoreX20/library-app/internal/database/progress"
	"github.com/CoreX20/library-app/internal/entities"
	"github.com/CoreX20/library-app/internal/reader/render"
)

// State is a reader session's lifecycle phase. Sessions move strictly
// forward: Init → Locating → Detecting → ResolvingPosition → Rendering
// → Active, with Failed reachable from every pre-Active phase and
// Terminated as the single exit. Failed and Terminated are terminal.
type State string

const (
	StateInit              State = "INIT"
	StateLocating          State = "LOCATING"
	StateDetecting         State = "DETECTING"
	StateResolvingPosition State = "RESOLVING_POSITION"
	StateRendering         State = "RENDERING"
	StateActive            State = "ACTIVE"
	StateTerminated        State = "TERMINATED"
	StateFailed            State = "FAILED"
)

var (
	// ErrUnsupportedFormat means the stored content type maps to no
	// known renderer.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidFilePath means the catalog entry's asset path cannot be
	// split into a folder and a file name.
	ErrInvalidFilePath = errors.New("invalid asset file path")

	// ErrSessionNotActive rejects navigation on a session that has not
	// reached, or has left, the Active state.
	ErrSessionNotActive = errors.New("session is not active")
)

// ProgressStore is the remote position store a session flushes to.
// A missing row is reported as progress.ErrNotFound.
type ProgressStore interface {
	Fetch(userID, bookID string) (string, error)
	Upsert(userID, bookID, location string) error
}

// AssetLocator resolves catalog paths into downloadable files.
type AssetLocator interface {
	Locate(ctx context.Context, folder, fileName string) (*assets.FileLocation, error)
	ContentType(ctx context.Context, fileID string) (string, error)
}

// SessionConfig carries the collaborators a session needs. Renderers
// maps each supported format to its renderer; formats absent from the
// map are treated as unsupported.
type SessionConfig struct {
	Assets        AssetLocator
	Store         ProgressStore
	Cache         LocalCache
	Renderers     map[Format]render.Renderer
	FlushInterval time.Duration
}

// Session is one user reading one book. Position events flow in through
// the renderer handle; every event is buffered in the local cache
// immediately and flushed to the progress store on a debounced timer.
// The cache entry is the session's write buffer: it exists exactly while
// a position is newer than what the store holds, and is cleared the
// moment a flush lands.
type Session struct {
	ID     string
	UserID string
	BookID string

	cache     LocalCache
	store     ProgressStore
	handle    render.Handle
	debouncer *Debouncer

	mu           sync.Mutex
	state        State
	format       Format
	url          string
	current      string
	baseline     string // last location confirmed present in the store
	lastActivity time.Time
	unsubscribe  func()
}

// OpenSession runs the full startup sequence: locate the document at
// the asset host, detect its format, resolve the starting position
// (cache first, then store, then the format default), and hand the
// document to the matching renderer. Any failure before Active leaves
// the returned error; the session is not retained.
func OpenSession(ctx context.Context, cfg SessionConfig, userID string, book *entities.Book) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		BookID:    book.ID,
		cache:     cfg.Cache,
		store:     cfg.Store,
		debouncer: NewDebouncer(cfg.FlushInterval),
		state:     StateInit,
	}

	s.setState(StateLocating)
	folder, fileName, err := splitAssetPath(book.FilePath)
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	location, err := cfg.Assets.Locate(ctx, folder, fileName)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("locating %q: %w", book.FilePath, err)
	}

	s.setState(StateDetecting)
	contentType, err := cfg.Assets.ContentType(ctx, location.FileID)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("detecting format of %s: %w", location.FileID, err)
	}
	format := FormatFromContentType(contentType)
	renderer, ok := cfg.Renderers[format]
	if format == FormatUnknown || !ok {
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
	s.format = format

	s.setState(StateResolvingPosition)
	initial, unflushed := s.resolvePosition(format)

	s.setState(StateRendering)
	doc := render.Document{
		URL:        location.URL,
		FileID:     location.FileID,
		Title:      book.Title,
		TotalPages: book.PageCount,
	}
	handle, err := renderer.Open(ctx, doc, initial)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("opening renderer: %w", err)
	}

	s.mu.Lock()
	s.handle = handle
	s.url = location.URL
	s.current = initial
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.unsubscribe = handle.Subscribe(s.onPosition)

	// A cache hit at open means a previous session died with an
	// unflushed position; schedule a flush so it reaches the store
	// even if the user never turns another page.
	if unflushed {
		s.debouncer.Arm(s.flush)
	}

	s.setState(StateActive)
	return s, nil
}

// splitAssetPath breaks "bucket/folder/.../file.ext" into the folder
// path the asset host is queried with and the bare file name.
func splitAssetPath(filePath string) (folder, fileName string, err error) {
	parts := strings.Split(filePath, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilePath, filePath)
	}
	return strings.Join(parts[1:len(parts)-1], "/"), parts[len(parts)-1], nil
}

// resolvePosition picks the starting position. The local cache wins
// over the store: a cached entry is by definition newer than anything
// flushed. A store hit is written back to the cache; with neither, the
// format default is used so the reader opens at the beginning.
func (s *Session) resolvePosition(format Format) (position string, unflushed bool) {
	if cached, ok := s.cache.Get(s.UserID, s.BookID); ok {
		return cached, true
	}

	stored, err := s.store.Fetch(s.UserID, s.BookID)
	switch {
	case err == nil:
		s.cache.Set(s.UserID, s.BookID, stored)
		s.mu.Lock()
		s.baseline = stored
		s.mu.Unlock()
		return stored, false
	case errors.Is(err, progress.ErrNotFound):
		// First read of this book.
	default:
		// The store being down must not block reading.
		log.Printf("fetching progress for user %s book %s: %v", s.UserID, s.BookID, err)
	}

	position = defaultPosition(format)
	s.cache.Set(s.UserID, s.BookID, position)
	return position, false
}

func defaultPosition(format Format) string {
	if format == FormatPDF {
		return "1"
	}
	return "0"
}

// onPosition receives every position-change event the renderer emits,
// including corrective ones. The cache write is synchronous; the store
// write waits behind the debouncer.
func (s *Session) onPosition(position string) {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.current = position
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.cache.Set(s.UserID, s.BookID, position)
	s.debouncer.Arm(s.flush)
}

// flush pushes the current position to the store. A position already
// matching the baseline is skipped. On failure the cache entry is kept
// and the flush is re-armed for the next window, so an outage costs at
// most one store write per flush interval.
func (s *Session) flush() {
	s.mu.Lock()
	position := s.current
	baseline := s.baseline
	terminated := s.state == StateTerminated
	s.mu.Unlock()

	if terminated || position == baseline {
		return
	}

	if err := s.store.Upsert(s.UserID, s.BookID, position); err != nil {
		log.Printf("flushing progress for user %s book %s: %v", s.UserID, s.BookID, err)
		s.debouncer.Arm(s.flush)
		return
	}

	s.mu.Lock()
	s.baseline = position
	s.mu.Unlock()
	s.cache.Clear(s.UserID, s.BookID)
}

// Navigate moves the rendering to position. The renderer validates and
// possibly corrects it; the corrected position comes back through the
// event subscription.
func (s *Session) Navigate(position string) error {
	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrSessionNotActive, state)
	}
	s.mu.Unlock()
	return s.handle.Navigate(position)
}

// Position returns the current position as the renderer holds it.
func (s *Session) Position() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return s.current
	}
	return s.handle.CurrentPosition()
}

// Label returns the renderer's human-readable description of the
// current position.
func (s *Session) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.Label()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// DocumentURL returns the signed, time-limited URL of the document at
// the asset host. It is handed to clients and never persisted.
func (s *Session) DocumentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// LastActivity reports when the session last received a position event.
// The idle reaper uses it to expire abandoned sessions.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Close terminates the session: the flush timer is cancelled, the event
// subscription is dropped and the renderer released. No final flush is
// forced — an unflushed position stays in the cache and is reconciled
// the next time this user opens the book.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	s.state = StateTerminated
	unsubscribe := s.unsubscribe
	handle := s.handle
	s.mu.Unlock()

	s.debouncer.Cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
	if handle != nil {
		return handle.Close()
	}
	return nil
}
