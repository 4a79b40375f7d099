// Package webdavtest runs a real in-memory WebDAV server for tests, with
// basic auth, a request log and forced failures per method.
package webdavtest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/webdav"
)

const (
	Username = "alice"
	Password = "secret"
)

// Server serves an in-memory file system over WebDAV.
type Server struct {
	*httptest.Server

	fs  webdav.FileSystem
	dav *webdav.Handler

	mu       sync.Mutex
	failures map[string]int // method -> forced status
	requests []string       // "METHOD /path", authenticated requests only
}

// NewServer starts a server closed automatically at the end of the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	fs := webdav.NewMemFS()
	s := &Server{
		fs: fs,
		dav: &webdav.Handler{
			FileSystem: fs,
			LockSystem: webdav.NewMemLS(),
		},
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Fail forces every request with method to answer status. Zero clears it.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method)
		return
	}
	s.failures[method] = status
}

// File returns the raw content stored at p, nil when absent.
func (s *Server) File(p string) []byte {
	f, err := s.fs.OpenFile(context.Background(), p, os.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return data
}

// PutFile stores content at p without going through HTTP, creating parent
// collections as needed.
func (s *Server) PutFile(p string, data []byte) {
	ctx := context.Background()
	s.MkdirAll(path.Dir(p))

	f, err := s.fs.OpenFile(ctx, p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.Write(data)
}

// MkdirAll creates collection p and its parents.
func (s *Server) MkdirAll(p string) {
	ctx := context.Background()
	cur := ""
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		_ = s.fs.Mkdir(ctx, cur, 0o755)
	}
}

// HasCollection reports whether collection p exists.
func (s *Server) HasCollection(p string) bool {
	fi, err := s.fs.Stat(context.Background(), p)
	return err == nil && fi.IsDir()
}

// Requests returns every authenticated request seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CountRequests counts requests of method whose path ends with suffix.
func (s *Server) CountRequests(method, suffix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, method+" ") && strings.HasSuffix(r, suffix) {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user != Username || pass != Password {
		w.Header().Set("WWW-Authenticate", `Basic realm="webdavtest"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	code, failed := s.failures[r.Method]
	s.mu.Unlock()

	if failed {
		w.WriteHeader(code)
		return
	}
	s.dav.ServeHTTP(w, r)
}
