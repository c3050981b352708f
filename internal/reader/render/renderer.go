// Package render holds the format-specific renderers the reader session
// dispatches to. A renderer opens a located document and returns a
// Handle: the session navigates it with serialized positions and
// subscribes to the (possibly corrected) position-change stream it emits.
//
// Positions are opaque strings. The paginated-flow variant passes
// structural locators through untouched; the page-image variant
// interprets them as 1-based page numbers and clamps out-of-range
// requests, re-emitting the corrected page so a subscriber never holds a
// position outside the document.
package render

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPosition means the position cannot be interpreted by
	// this renderer (wrong encoding, empty, not a number for pages).
	ErrInvalidPosition = errors.New("invalid position for renderer")

	// ErrClosed means the handle was already closed.
	ErrClosed = errors.New("renderer handle closed")
)

// Document describes a located file to be rendered.
type Document struct {
	URL        string // signed download URL; valid for this session only
	FileID     string
	Title      string
	TotalPages int // page-image documents only; 0 means unknown
}

// PositionFunc receives position-change events.
type PositionFunc func(position string)

// Handle is a live rendering of one document. All methods are safe for
// concurrent use; the subscriber callback runs synchronously on the
// goroutine that navigated.
type Handle interface {
	// Subscribe registers a position-change callback and returns a
	// cancel func. The subscription owner must cancel on teardown.
	Subscribe(fn PositionFunc) (cancel func())

	// Navigate moves the rendering to position, emitting a
	// position-change event (corrected if the renderer had to clamp).
	Navigate(position string) error

	// CurrentPosition returns the serializable current position.
	CurrentPosition() string

	// Label returns a human-readable description of the current
	// position. Cosmetic only; never persisted.
	Label() string

	Close() error
}

// Renderer opens documents of one format.
type Renderer interface {
	Open(ctx context.Context, doc Document, initialPosition string) (Handle, error)
}

// subscribers is the shared fan-out used by both handle variants.
type subscribers struct {
	next int
	fns  map[int]PositionFunc
}

func newSubscribers() *subscribers {
	return &subscribers{fns: make(map[int]PositionFunc)}
}

func (s *subscribers) add(fn PositionFunc) int {
	id := s.next
	s.next++
	s.fns[id] = fn
	return id
}

func (s *subscribers) remove(id int) {
	delete(s.fns, id)
}

func (s *subscribers) snapshot() []PositionFunc {
	fns := make([]PositionFunc, 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	return fns
}
