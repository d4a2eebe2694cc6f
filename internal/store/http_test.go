package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

func TestHTTPGetReturnsDataAndVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("ETag", `"abc123"`)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL, "secret", time.Second)
	doc, err := s.Get(context.Background(), "indexes/clusters.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(doc.Data) != `{"ok":true}` {
		t.Errorf("data = %s", doc.Data)
	}
	if doc.Version != "abc123" {
		t.Errorf("version = %q, want etag with quotes stripped", doc.Version)
	}
}

func TestHTTPGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL, "", time.Second)
	_, err := s.Get(context.Background(), "missing.json")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPGetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL, "", time.Second)
	_, err := s.Get(context.Background(), "a.json")
	var se *apperr.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}
	if se.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", se.Status)
	}
}

func TestHTTPPutCreateSendsIfNoneMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("If-None-Match"); got != "*" {
			t.Errorf("If-None-Match = %q, want *", got)
		}
		if got := r.Header.Get("If-Match"); got != "" {
			t.Errorf("If-Match unexpectedly set: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"n":1}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL, "", time.Second)
	version, err := s.Put(context.Background(), "a.json", []byte(`{"n":1}`), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if version != "v1" {
		t.Errorf("version = %q", version)
	}
}

func TestHTTPPutUpdateSendsQuotedIfMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("If-Match"); got != `"v1"` {
			t.Errorf("If-Match = %q, want quoted etag", got)
		}
		w.Header().Set("ETag", `"v2"`)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL, "", time.Second)
	version, err := s.Put(context.Background(), "a.json", []byte(`{}`), "v1")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if version != "v2" {
		t.Errorf("version = %q", version)
	}
}

func TestHTTPPutConflictStatuses(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusPreconditionFailed} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		s := NewHTTP(srv.URL, "", time.Second)
		_, err := s.Put(context.Background(), "a.json", []byte(`{}`), "stale")
		srv.Close()
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("status %d: err = %v, want ErrConflict", status, err)
		}
	}
}

func TestHTTPPathEscaping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("ETag", `"v"`)
	}))
	defer srv.Close()

	s := NewHTTP(srv.URL+"/", "", time.Second)
	if _, err := s.Get(context.Background(), "notes/a b.json"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotPath != "/notes%2Fa%20b.json" {
		t.Errorf("path = %q", gotPath)
	}
}
