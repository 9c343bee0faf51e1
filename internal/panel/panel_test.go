package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(""), "/")

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesStaticAssets(t *testing.T) {
	handler := Handler("")

	tests := []struct {
		path     string
		contains string
	}{
		{"/app.js", "new WebSocket"},
		{"/style.css", ".state-Pending"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, handler, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s: got status %d, want 200", tt.path, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("GET %s: body missing %q", tt.path, tt.contains)
			}
		})
	}
}

func TestHandlerFallback(t *testing.T) {
	handler := Handler("")

	for _, p := range []string{"/nonexistent", "/some/deep/route"} {
		w := get(t, handler, p)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200 (fallback)", p, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: fallback didn't serve index.html", p)
		}
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>custom dashboard</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.js"), []byte("console.log('test')"), 0o644); err != nil {
		t.Fatal(err)
	}

	handler := Handler(dir)

	if w := get(t, handler, "/"); !strings.Contains(w.Body.String(), "custom dashboard") {
		t.Errorf("filesystem GET /: got %q", w.Body.String())
	}
	if w := get(t, handler, "/test.js"); !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("filesystem GET /test.js: got %q", w.Body.String())
	}
	if w := get(t, handler, "/app.js"); !strings.Contains(w.Body.String(), "custom dashboard") {
		t.Error("filesystem mode served an embedded asset instead of falling back")
	}
}

func TestHandlerMissingDirUsesEmbedded(t *testing.T) {
	w := get(t, Handler(filepath.Join(t.TempDir(), "missing")), "/app.js")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "new WebSocket") {
		t.Errorf("missing dir: status %d, body %q", w.Code, w.Body.String())
	}
}
