package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/m-mizutani/gt"
	httpCtrl "github.com/secmon-lab/tally/pkg/controller/http"
)

func newTestFS() http.FileSystem {
	return http.FS(fstest.MapFS{
		"index.html":       {Data: []byte(`<html><body><div id="app"></div></body></html>`)},
		"static/app.js":    {Data: []byte(`console.log("tally")`)},
		"static/style.css": {Data: []byte(`body { color: #363636; }`)},
	})
}

func TestSPAHandler(t *testing.T) {
	handler, err := httpCtrl.NewSPAHandler(newTestFS())
	gt.NoError(t, err).Required()

	t.Run("serve existing static file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Header().Get("Content-Type")).Contains("javascript")
		gt.S(t, w.Body.String()).Contains("console.log")
	})

	t.Run("serve CSS file with correct content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Header().Get("Content-Type")).Contains("text/css")
	})

	t.Run("serve index.html for unknown routes", func(t *testing.T) {
		for _, path := range []string{"/", "/index.html", "/charts", "/charts/versions", "/static", "/../../etc/passwd"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			gt.Equal(t, w.Code, http.StatusOK)
			gt.Equal(t, w.Header().Get("Content-Type"), "text/html; charset=utf-8")
			gt.S(t, w.Body.String()).Contains(`<div id="app">`)
		}
	})

	t.Run("reject non-GET methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		gt.Equal(t, w.Code, http.StatusMethodNotAllowed)
	})
}

func TestNewSPAHandlerError(t *testing.T) {
	_, err := httpCtrl.NewSPAHandler(http.FS(fstest.MapFS{}))
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("failed to open index.html")
}
