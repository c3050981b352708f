package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// Paginated-flow documents can be large; cap what we pull for the
	// table of contents so a runaway download cannot exhaust memory.
	maxEpubDownloadBytes = 64 << 20

	defaultEpubFetchTimeout = 15 * time.Second
)

// Chapter is one table-of-contents entry.
type Chapter struct {
	Title string
	Href  string
}

// EpubRenderer renders paginated-flow documents. Positions are opaque
// structural locators produced by the client-side layout engine; the
// renderer stores and replays them without interpretation, so a resumed
// session lands on the exact locator that was saved.
type EpubRenderer struct {
	client *http.Client
}

// NewEpubRenderer returns a renderer that fetches document archives
// over HTTP to extract navigation metadata.
func NewEpubRenderer() *EpubRenderer {
	return &EpubRenderer{
		client: &http.Client{Timeout: defaultEpubFetchTimeout},
	}
}

// Open validates the initial locator and loads the table of contents.
// A missing or unparsable TOC is logged and ignored: navigation
// metadata is cosmetic, reading must not fail because of it.
func (r *EpubRenderer) Open(ctx context.Context, doc Document, initialPosition string) (Handle, error) {
	if initialPosition == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrInvalidPosition)
	}

	h := &epubHandle{
		current: initialPosition,
		subs:    newSubscribers(),
	}

	toc, spine, err := r.fetchNavigation(ctx, doc.URL)
	if err != nil {
		log.Printf("table of contents unavailable for %s: %v", doc.FileID, err)
	} else {
		h.toc = toc
		h.spine = spine
	}
	return h, nil
}

// fetchNavigation downloads the archive and extracts the spine order
// and the NCX table of contents.
func (r *EpubRenderer) fetchNavigation(ctx context.Context, url string) ([]Chapter, []spineItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("downloading document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("downloading document: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEpubDownloadBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("reading document body: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("opening document archive: %w", err)
	}
	return parseNavigation(zr)
}

type spineItem struct {
	ID   string
	Href string
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine struct {
		Toc      string `xml:"toc,attr"`
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type ncxXML struct {
	NavPoints []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxNavPoint struct {
	Label   string        `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func parseNavigation(zr *zip.Reader) ([]Chapter, []spineItem, error) {
	var container containerXML
	if err := readXML(zr, "META-INF/container.xml", &container); err != nil {
		return nil, nil, err
	}
	if len(container.Rootfiles) == 0 {
		return nil, nil, fmt.Errorf("archive has no rootfile")
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg packageXML
	if err := readXML(zr, opfPath, &pkg); err != nil {
		return nil, nil, err
	}

	hrefByID := make(map[string]string, len(pkg.Manifest))
	ncxHref := ""
	for _, item := range pkg.Manifest {
		hrefByID[item.ID] = item.Href
		if item.MediaType == "application/x-dtbncx+xml" || item.ID == pkg.Spine.Toc {
			ncxHref = item.Href
		}
	}

	spine := make([]spineItem, 0, len(pkg.Spine.Itemrefs))
	for _, ref := range pkg.Spine.Itemrefs {
		spine = append(spine, spineItem{ID: ref.IDRef, Href: hrefByID[ref.IDRef]})
	}

	if ncxHref == "" {
		return nil, spine, nil
	}
	var ncx ncxXML
	base := path.Dir(opfPath)
	if err := readXML(zr, resolvePath(base, ncxHref), &ncx); err != nil {
		return nil, spine, fmt.Errorf("parsing navigation document: %w", err)
	}

	var toc []Chapter
	var walk func(points []ncxNavPoint)
	walk = func(points []ncxNavPoint) {
		for _, p := range points {
			href := p.Content.Src
			if i := strings.IndexByte(href, '#'); i >= 0 {
				href = href[:i]
			}
			toc = append(toc, Chapter{Title: strings.TrimSpace(p.Label), Href: href})
			walk(p.Children)
		}
	}
	walk(ncx.NavPoints)
	return toc, spine, nil
}

func readXML(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func resolvePath(base, href string) string {
	if base == "." || base == "" {
		return href
	}
	return path.Join(base, href)
}

// epubHandle holds the live position of one paginated-flow document.
type epubHandle struct {
	mu      sync.Mutex
	closed  bool
	current string
	toc     []Chapter
	spine   []spineItem
	subs    *subscribers
}

func (h *epubHandle) Subscribe(fn PositionFunc) (cancel func()) {
	h.mu.Lock()
	id := h.subs.add(fn)
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.subs.remove(id)
		h.mu.Unlock()
	}
}

func (h *epubHandle) Navigate(position string) error {
	if position == "" {
		return fmt.Errorf("%w: empty locator", ErrInvalidPosition)
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.current = position
	fns := h.subs.snapshot()
	h.mu.Unlock()

	for _, fn := range fns {
		fn(position)
	}
	return nil
}

func (h *epubHandle) CurrentPosition() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// locatorIDPattern extracts the bracketed spine item id a structural
// locator carries, e.g. "chap03" in "epubcfi(/6/8[chap03]!/4/2/1:0)".
var locatorIDPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// Label maps the current locator onto the spine and table of contents.
func (h *epubHandle) Label() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.spine) == 0 {
		return "chapter n/a"
	}
	m := locatorIDPattern.FindStringSubmatch(h.current)
	if m == nil {
		return "chapter n/a"
	}
	for i, item := range h.spine {
		if item.ID != m[1] {
			continue
		}
		label := fmt.Sprintf("chapter %d of %d", i+1, len(h.spine))
		if title := h.chapterTitle(item.Href); title != "" {
			label += ": " + title
		}
		return label
	}
	return "chapter n/a"
}

func (h *epubHandle) chapterTitle(href string) string {
	for _, c := range h.toc {
		if c.Href == href {
			return c.Title
		}
	}
	return ""
}

func (h *epubHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = newSubscribers()
	return nil
}
