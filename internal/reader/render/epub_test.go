package render

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testPackageOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="chap01" href="chap01.xhtml" media-type="application/xhtml+xml"/>
    <item id="chap02" href="chap02.xhtml" media-type="application/xhtml+xml"/>
    <item id="chap03" href="chap03.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="chap01"/>
    <itemref idref="chap02"/>
    <itemref idref="chap03"/>
  </spine>
</package>`

const testTocNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Arrival</text></navLabel>
      <content src="chap01.xhtml"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>The Long Night</text></navLabel>
      <content src="chap02.xhtml#start"/>
    </navPoint>
    <navPoint id="np3" playOrder="3">
      <navLabel><text>Departure</text></navLabel>
      <content src="chap03.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func buildTestArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	files := map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testPackageOPF,
		"OEBPS/toc.ncx":          testTocNCX,
		"OEBPS/chap01.xhtml":     "<html/>",
		"OEBPS/chap02.xhtml":     "<html/>",
		"OEBPS/chap03.xhtml":     "<html/>",
	}
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func serveArchive(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/epub+zip")
		w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEpubOpenRejectsEmptyLocator(t *testing.T) {
	r := NewEpubRenderer()

	_, err := r.Open(context.Background(), Document{URL: "http://unused.invalid"}, "")
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestEpubResumesExactLocator(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	locator := "epubcfi(/6/6[chap02]!/4/2/1:0)"
	h, err := r.Open(context.Background(), Document{URL: server.URL}, locator)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, locator, h.CurrentPosition())
}

func TestEpubLabelFromSpineAndTOC(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/6[chap02]!/4/2/1:0)")
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "chapter 2 of 3: The Long Night", h.Label())

	require.NoError(t, h.Navigate("epubcfi(/6/8[chap03]!/4/2/1:0)"))
	assert.Equal(t, "chapter 3 of 3: Departure", h.Label())
}

func TestEpubLabelWithUnknownSpineItem(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/20[chap99]!/4)")
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "chapter n/a", h.Label())
}

func TestEpubNavigatePassesLocatorsThroughUntouched(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/4[chap01]!/4)")
	require.NoError(t, err)
	defer h.Close()

	var events []string
	cancel := h.Subscribe(func(pos string) { events = append(events, pos) })
	defer cancel()

	next := "epubcfi(/6/6[chap02]!/4/10/3:15)"
	require.NoError(t, h.Navigate(next))

	assert.Equal(t, []string{next}, events)
	assert.Equal(t, next, h.CurrentPosition())
}

func TestEpubNavigateRejectsEmptyLocator(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/4[chap01]!/4)")
	require.NoError(t, err)
	defer h.Close()

	assert.ErrorIs(t, h.Navigate(""), ErrInvalidPosition)
}

func TestEpubOpenSucceedsWhenTOCUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/4[chap01]!/4)")
	require.NoError(t, err, "navigation metadata is optional")
	defer h.Close()

	assert.Equal(t, "epubcfi(/6/4[chap01]!/4)", h.CurrentPosition())
	assert.Equal(t, "chapter n/a", h.Label())
}

func TestEpubCanceledSubscriptionStopsReceiving(t *testing.T) {
	server := serveArchive(t, buildTestArchive(t))
	r := NewEpubRenderer()

	h, err := r.Open(context.Background(), Document{URL: server.URL}, "epubcfi(/6/4[chap01]!/4)")
	require.NoError(t, err)
	defer h.Close()

	var events []string
	cancel := h.Subscribe(func(pos string) { events = append(events, pos) })
	cancel()

	require.NoError(t, h.Navigate("epubcfi(/6/6[chap02]!/4)"))
	assert.Empty(t, events)
}
