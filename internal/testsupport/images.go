package testsupport

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewImageServer serves fake panel images: /tall.png (800x3000) and
// /short.png (640x600). Any other path returns 404.
func NewImageServer(t testing.TB) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tall.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(FakeImage(800, 3000))
	})
	mux.HandleFunc("/short.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(FakeImage(640, 600))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
