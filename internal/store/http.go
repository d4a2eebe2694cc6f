package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

// HTTP is a Store backed by a remote blob API with content-hash
// versioning. The server returns the version token in the ETag header on
// reads and writes; conditional updates send If-Match, creates send
// If-None-Match: *. 404 maps to ErrNotFound, 409 and 412 to ErrConflict,
// everything else non-2xx to *apperr.StoreError.
type HTTP struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTP creates an HTTP store client rooted at baseURL. token, when
// non-empty, is sent as a Bearer credential on every request.
func NewHTTP(baseURL, token string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTP) docURL(path string) string {
	return s.baseURL + "/" + url.PathEscape(path)
}

func (s *HTTP) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.docURL(path), body)
	if err != nil {
		return nil, &apperr.StoreError{Path: path, Err: err}
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

// Get fetches the document at path together with its version token.
func (s *HTTP) Get(ctx context.Context, path string) (Document, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, &apperr.StoreError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Document{}, fmt.Errorf("store: get %s: %w", path, apperr.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Document{}, &apperr.StoreError{
			Path:   path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, &apperr.StoreError{Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	return Document{Data: data, Version: etag(resp)}, nil
}

// Put writes data at path. Empty expectedVersion creates; otherwise the
// write is conditional on the version token still matching.
func (s *HTTP) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	req, err := s.newRequest(ctx, http.MethodPut, path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if expectedVersion == "" {
		req.Header.Set("If-None-Match", "*")
	} else {
		req.Header.Set("If-Match", quoteETag(expectedVersion))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &apperr.StoreError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return "", fmt.Errorf("store: put %s: %w", path, apperr.ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &apperr.StoreError{
			Path:   path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}
	return etag(resp), nil
}

func etag(resp *http.Response) string {
	return strings.Trim(resp.Header.Get("ETag"), `"`)
}

func quoteETag(v string) string {
	return `"` + v + `"`
}
