package render

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// PdfRenderer renders page-image documents. Positions are 1-based page
// numbers serialized as decimal strings.
type PdfRenderer struct{}

func NewPdfRenderer() *PdfRenderer {
	return &PdfRenderer{}
}

// Open parses and clamps the initial page. When the initial position
// had to be corrected, the handle replays the corrected page to the
// first subscriber so the caller never keeps an out-of-range position.
func (r *PdfRenderer) Open(_ context.Context, doc Document, initialPosition string) (Handle, error) {
	page, err := parsePage(initialPosition)
	if err != nil {
		return nil, err
	}
	clamped := clampPage(page, doc.TotalPages)
	return &pdfHandle{
		current:           clamped,
		totalPages:        doc.TotalPages,
		correctionPending: clamped != page,
		subs:              newSubscribers(),
	}, nil
}

func parsePage(position string) (int, error) {
	page, err := strconv.Atoi(position)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrInvalidPosition, position)
	}
	return page, nil
}

func clampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages > 0 && page > totalPages {
		return totalPages
	}
	return page
}

type pdfHandle struct {
	mu                sync.Mutex
	closed            bool
	current           int
	totalPages        int
	correctionPending bool
	subs              *subscribers
}

func (h *pdfHandle) Subscribe(fn PositionFunc) (cancel func()) {
	h.mu.Lock()
	id := h.subs.add(fn)
	replay := ""
	if h.correctionPending {
		h.correctionPending = false
		replay = strconv.Itoa(h.current)
	}
	h.mu.Unlock()

	if replay != "" {
		fn(replay)
	}
	return func() {
		h.mu.Lock()
		h.subs.remove(id)
		h.mu.Unlock()
	}
}

// Navigate moves to the requested page, clamping to the document
// bounds. A clamped request still emits exactly one position-change
// event, carrying the corrected page.
func (h *pdfHandle) Navigate(position string) error {
	page, err := parsePage(position)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.current = clampPage(page, h.totalPages)
	emitted := strconv.Itoa(h.current)
	fns := h.subs.snapshot()
	h.mu.Unlock()

	for _, fn := range fns {
		fn(emitted)
	}
	return nil
}

func (h *pdfHandle) CurrentPosition() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strconv.Itoa(h.current)
}

func (h *pdfHandle) Label() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.totalPages > 0 {
		return fmt.Sprintf("page %d of %d", h.current, h.totalPages)
	}
	return fmt.Sprintf("page %d", h.current)
}

func (h *pdfHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = newSubscribers()
	return nil
}
