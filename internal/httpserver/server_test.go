package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/logcaster/logcaster/internal/buffer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*buffer.RingBuffer, *gin.Engine) {
	t.Helper()
	b := buffer.New(16)

	srv := NewServer("", b)
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	srv.route(r)

	return b, r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	b, r := newTestServer(t)
	b.Push("one", "info", "test")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
	if body["total"].(float64) != 1 || body["current"].(float64) != 1 {
		t.Fatalf("counters = %v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	b, r := newTestServer(t)
	for i := 0; i < 20; i++ {
		b.Push("m", "info", "test")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	r.ServeHTTP(w, req)

	body := decode(t, w)
	if body["total"].(float64) != 20 {
		t.Fatalf("total = %v", body["total"])
	}
	if body["dropped"].(float64) != 4 { // capacity 16
		t.Fatalf("dropped = %v", body["dropped"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	b, r := newTestServer(t)
	b.Push("needle in haystack", "info", "test")
	b.Push("nothing here", "info", "test")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?keyword=needle", nil)
	r.ServeHTTP(w, req)

	body := decode(t, w)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v", body["count"])
	}
}

func TestSearchRequiresKeyword(t *testing.T) {
	_, r := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	b, r := newTestServer(t)
	b.Push("request timeout", "info", "test")
	b.Push("request ok", "info", "test")

	payload, _ := json.Marshal(map[string]string{"query": "QUERY keywords=timeout"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v", body["count"])
	}
}

func TestQueryEndpointBadRegex(t *testing.T) {
	_, r := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"query": "QUERY regex=["})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
