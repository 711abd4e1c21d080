// Package site serves overlay and control pages from the web root.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// Error constants
var (
	ErrNoRoot = errors.New("web root is not a directory")
)

const notFoundBody = `{"error":"Not found"}` + "\n"

// Register attaches the static file handler for root to mux at /.
func Register(_ context.Context, mux *http.ServeMux, root string) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler(root))
}

// CheckRoot reports whether root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.Join(ErrNoRoot, err)
	}
	if !info.IsDir() {
		return ErrNoRoot
	}
	return nil
}

// RootHandler serves files from a directory. Directory listings are never
// produced; when the root has no index.html an embedded landing page is
// shown at /.
type RootHandler struct {
	dir      http.FileSystem
	files    http.Handler
	fallback http.Handler
}

// NewRootHandler creates a handler for files under root.
func NewRootHandler(root string) *RootHandler {
	if root == "" {
		root = "."
	}
	dir := http.Dir(root)
	return &RootHandler{
		dir:      dir,
		files:    http.FileServer(dir),
		fallback: http.FileServer(FS()),
	}
}

// ServeHTTP handles GET and HEAD for static files. Any other method is a 404.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		NotFound(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	info, err := h.stat(name)
	switch {
	case err != nil && name == "/":
		h.fallback.ServeHTTP(w, r)
	case err != nil:
		NotFound(w, r)
	case info.IsDir():
		if _, err := h.stat(path.Join(name, "index.html")); err != nil {
			if name == "/" {
				h.fallback.ServeHTTP(w, r)
				return
			}
			NotFound(w, r)
			return
		}
		h.files.ServeHTTP(w, r)
	default:
		h.files.ServeHTTP(w, r)
	}
}

func (h *RootHandler) stat(name string) (fs.FileInfo, error) {
	// Dotfiles such as .env stay private.
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return nil, fs.ErrNotExist
		}
	}
	f, err := h.dir.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// NotFound writes the bridge's JSON 404.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(notFoundBody))
}
