package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/clipper/internal/clipservice"
	"github.com/starford/clipper/internal/clipstore"
	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/host"
	"github.com/starford/clipper/internal/testutil"
)

var testNow = time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)

type env struct {
	svc    *clipservice.Service
	router http.Handler
	root   string
}

// testEnv sets up a temp storage root, SQLite DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *env {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) *env {
	t.Helper()

	root := t.TempDir()
	db := testutil.TestDB(t)
	if err := db.SetSetting(clipstore.SettingBaseFolder, root); err != nil {
		t.Fatal(err)
	}
	clk := clock.Fixed(testNow)
	logger := testutil.Logger()

	store, err := clipstore.Open(clipstore.Options{Settings: db, Clock: clk, Logger: logger})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	d := host.NewDispatcher(store, clk, logger)
	svc := clipservice.NewService(store, db, d, clk, logger)
	return &env{
		svc:    svc,
		router: NewRouter(svc, authEnabled, token, sseHandler),
		root:   root,
	}
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const helloClip = `{"type":"clip","content":"Body about gophers","metadata":{"title":"Hello, World?!","url":"https://x"}}`

func TestCreateAndGetClip(t *testing.T) {
	e := testEnv(t, "")

	w := do(t, e.router, http.MethodPost, "/clips", helloClip, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created CreateClipResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if !created.Success || created.Message != host.SavedMessage || created.Clip == nil {
		t.Fatalf("create response = %+v", created)
	}
	if created.Clip.Name != "2024-01-01 00:05 Hello, World-!" {
		t.Errorf("name = %q", created.Clip.Name)
	}

	w = do(t, e.router, http.MethodGet, "/clips/"+strings.ReplaceAll(created.Clip.Name, " ", "%20"), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail clipservice.ClipDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Hello, World?!" || detail.URL != "https://x" {
		t.Errorf("detail = %+v", detail)
	}
	if !strings.Contains(detail.Content, "Body about gophers") {
		t.Errorf("content = %q", detail.Content)
	}
}

func TestCreateClip_ProtocolError(t *testing.T) {
	e := testEnv(t, "")

	for _, body := range []string{`{not json`, `{"type":"ping"}`, `{"type":"clip","content":"x"}`} {
		w := do(t, e.router, http.MethodPost, "/clips", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, w.Code)
			continue
		}
		var resp CreateClipResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Success || resp.Error == "" {
			t.Errorf("%s: response = %+v", body, resp)
		}
	}
}

func TestRecentClips(t *testing.T) {
	e := testEnv(t, "")

	w := do(t, e.router, http.MethodGet, "/clips/recent", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"clips":[]`) {
		t.Errorf("empty listing = %s", w.Body.String())
	}

	do(t, e.router, http.MethodPost, "/clips", helloClip, "")

	w = do(t, e.router, http.MethodGet, "/clips/recent", "", "")
	var resp RecentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Clips) != 1 || resp.Clips[0].Name != "2024-01-01 00:05 Hello, World-!" {
		t.Errorf("recent = %+v", resp.Clips)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "")
	do(t, e.router, http.MethodPost, "/clips", helloClip, "")

	w := do(t, e.router, http.MethodGet, "/clips/search?q=gophers", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://x" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "")
	w := do(t, e.router, http.MethodGet, "/clips/search", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestGetClip_NotFound(t *testing.T) {
	e := testEnv(t, "")
	w := do(t, e.router, http.MethodGet, "/clips/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBaseFolder(t *testing.T) {
	e := testEnv(t, "")

	w := do(t, e.router, http.MethodGet, "/settings/base-folder", "", "")
	var layout clipstore.Layout
	if err := json.Unmarshal(w.Body.Bytes(), &layout); err != nil {
		t.Fatal(err)
	}
	if layout.Root != e.root || layout.Daily != "daily" {
		t.Errorf("layout = %+v", layout)
	}

	next := t.TempDir()
	if err := os.MkdirAll(filepath.Join(next, "Daily"), 0o755); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(BaseFolderRequest{Path: next})
	w = do(t, e.router, http.MethodPut, "/settings/base-folder", string(body), "")
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &layout)
	if layout.Root != next || layout.Daily != "Daily" {
		t.Errorf("layout after move = %+v", layout)
	}
}

func TestBaseFolder_Invalid(t *testing.T) {
	e := testEnv(t, "")

	file := filepath.Join(t.TempDir(), "f")
	os.WriteFile(file, []byte("x"), 0o644)

	for _, body := range []string{`{"path":""}`, `nope`, `{"path":"` + file + `"}`} {
		w := do(t, e.router, http.MethodPut, "/settings/base-folder", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123")
	w := do(t, e.router, http.MethodPost, "/clips", helloClip, "secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123")
	w := do(t, e.router, http.MethodGet, "/clips/recent", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123")
	w := do(t, e.router, http.MethodGet, "/clips/recent", "", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	e := testEnv(t, "secret123")
	w := do(t, e.router, http.MethodGet, "/clips/recent?access_token=secret123", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET with query token = %d, want 200", w.Code)
	}
	w = do(t, e.router, http.MethodPost, "/clips?access_token=secret123", helloClip, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")
	w := do(t, e.router, http.MethodGet, "/clips/recent", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// Minimal SSE handler stub: writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnvWithSSE(t, true, "secret", sseStub)
	w := do(t, e.router, http.MethodGet, "/events", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestCreateClip_BodyTooLarge(t *testing.T) {
	e := testEnv(t, "")
	big := bytes.Repeat([]byte("x"), 1<<20+10)
	req := httptest.NewRequest(http.MethodPost, "/clips", bytes.NewReader(big))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
