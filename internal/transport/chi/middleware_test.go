package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest("OPTIONS", "/tracks", http.NoBody)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Username")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin: got %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("allow methods: got %q, want POST", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("allow headers should echo the requested headers")
	}
}

func TestCORS_PreflightPatch(t *testing.T) {
	h := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest("OPTIONS", "/tracks/trk1", http.NoBody)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "PATCH" {
		t.Errorf("allow methods: got %q, want PATCH", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := CORS([]string{"https://rikitraki.com"})(okHandler())

	req := httptest.NewRequest("GET", "/tracks", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin: got %q, want empty", got)
	}
}

func TestWriteRateLimit_OnlyWrites(t *testing.T) {
	h := WriteRateLimit(1)(okHandler())

	send := func(method string) int {
		req := httptest.NewRequest(method, "/tracks", http.NoBody)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("POST"); code != http.StatusOK {
		t.Fatalf("first write: got %d, want %d", code, http.StatusOK)
	}
	if code := send("POST"); code != http.StatusTooManyRequests {
		t.Fatalf("second write: got %d, want %d", code, http.StatusTooManyRequests)
	}
	for range 3 {
		if code := send("GET"); code != http.StatusOK {
			t.Fatalf("read: got %d, want %d", code, http.StatusOK)
		}
	}
}

func TestWriteRateLimit_Disabled(t *testing.T) {
	h := WriteRateLimit(0)(okHandler())

	for range 5 {
		req := httptest.NewRequest("DELETE", "/tracks/x", http.NoBody)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
		}
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
