package http

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// SPAHandler serves the dashboard frontend. Paths that do not name a file
// get index.html so client-side routes survive a reload.
type SPAHandler struct {
	fileSystem http.FileSystem
	index      []byte
	loadedAt   time.Time
}

// NewSPAHandler creates a new SPA handler
func NewSPAHandler(filesystem http.FileSystem) (*SPAHandler, error) {
	f, err := filesystem.Open("/index.html")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open index.html")
	}
	defer f.Close()

	index, err := io.ReadAll(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read index.html")
	}

	return &SPAHandler{
		fileSystem: filesystem,
		index:      index,
		loadedAt:   time.Now(),
	}, nil
}

// ServeHTTP implements http.Handler
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if name == "/" || name == "/index.html" {
		h.serveIndex(w, r)
		return
	}

	file, err := h.fileSystem.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.serveIndex(w, r)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if stat.IsDir() {
		h.serveIndex(w, r)
		return
	}

	// ServeContent sets Content-Type from the extension and handles ranges
	// and conditional requests
	http.ServeContent(w, r, name, stat.ModTime(), file)
}

func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "index.html", h.loadedAt, bytes.NewReader(h.index))
}
