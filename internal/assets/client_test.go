package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoreX20/library-app/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.Assets{
		Endpoint:   serverURL,
		PrivateKey: "private_test_key",
		Timeout:    2 * time.Second,
	})
}

func TestClient_Locate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("searchQuery"), "books/fiction")
		assert.Contains(t, r.URL.Query().Get("searchQuery"), "dune.epub")

		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "private_test_key", user)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"fileId":"file-123","name":"dune.epub","filePath":"/books/fiction/dune.epub","url":"https://cdn.example.com/signed/dune.epub"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	loc, err := client.Locate(context.Background(), "books/fiction", "dune.epub")
	require.NoError(t, err)
	assert.Equal(t, "file-123", loc.FileID)
	assert.Equal(t, "https://cdn.example.com/signed/dune.epub", loc.URL)
}

func TestClient_Locate_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	loc, err := client.Locate(context.Background(), "books/fiction", "missing.epub")
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestClient_Locate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Locate(context.Background(), "books", "dune.epub")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_Locate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(config.Assets{
		Endpoint: server.URL,
		Timeout:  50 * time.Millisecond,
	})

	_, err := client.Locate(context.Background(), "books", "dune.epub")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_ContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file-123/details", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fileId":"file-123","mime":"application/epub+zip"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	mime, err := client.ContentType(context.Background(), "file-123")
	require.NoError(t, err)
	assert.Equal(t, "application/epub+zip", mime)
}

func TestClient_ContentType_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.ContentType(context.Background(), "missing-file")
	assert.ErrorIs(t, err, ErrFileNotFound)
}
