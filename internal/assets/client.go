// Package assets talks to the remote asset host that stores book files.
//
// The host is queried read-only: Locate resolves a (folder, file name)
// pair to a time-limited download URL plus a file id, and ContentType
// returns the stored MIME type for a file id. Nothing here caches signed
// URLs; they expire and must be re-resolved per reading session.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/CoreX20/library-app/internal/config"
)

var (
	// ErrFileNotFound means no file matched the folder + name query.
	ErrFileNotFound = errors.New("file not found at asset host")

	// ErrUpstream covers transport failures, timeouts, auth rejections
	// and server errors from the asset host.
	ErrUpstream = errors.New("asset host request failed")
)

// FileLocation is the result of resolving a logical file reference.
type FileLocation struct {
	URL    string // signed, time-limited download URL
	FileID string
}

// Client queries the asset host API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	privateKey string
}

// NewClient creates an asset host client with an explicit request timeout.
// Timeout expiry is reported as ErrUpstream.
func NewClient(cfg config.Assets) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		privateKey: cfg.PrivateKey,
	}
}

// listFileResult mirrors the host's file listing payload.
type listFileResult struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
	Mime     string `json:"mime,omitempty"`
}

// Locate searches the host for a file stored under folder with the given
// name. Returns ErrFileNotFound when nothing matches, ErrUpstream on any
// transport or server failure. The first match wins.
func (c *Client) Locate(ctx context.Context, folder, fileName string) (*FileLocation, error) {
	searchQuery := fmt.Sprintf("path:%q AND name=%q", folder, fileName)

	listURL := fmt.Sprintf("%s/files?searchQuery=%s&limit=1", c.endpoint, url.QueryEscape(searchQuery))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list files: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var results []listFileResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode file listing: %v", ErrUpstream, err)
	}

	if len(results) == 0 {
		return nil, ErrFileNotFound
	}

	return &FileLocation{
		URL:    results[0].URL,
		FileID: results[0].FileID,
	}, nil
}

// fileDetails mirrors the host's file details payload.
type fileDetails struct {
	FileID string `json:"fileId"`
	Mime   string `json:"mime"`
}

// ContentType returns the stored MIME type for a file id.
func (c *Client) ContentType(ctx context.Context, fileID string) (string, error) {
	detailsURL := fmt.Sprintf("%s/files/%s/details", c.endpoint, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailsURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: file details: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: file details: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var details fileDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return "", fmt.Errorf("%w: decode file details: %v", ErrUpstream, err)
	}

	return details.Mime, nil
}

// authorize signs the request the way the host expects: HTTP basic auth
// with the private key as username and an empty password.
func (c *Client) authorize(req *http.Request) {
	if c.privateKey != "" {
		req.SetBasicAuth(c.privateKey, "")
	}
}
