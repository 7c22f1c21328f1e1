package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func corsPolicy() CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{http.MethodGet, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", OwnerIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         10 * time.Minute,
	}
}

func appointmentRoutes(hits *int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/v1/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func preflight(origin, method, headers string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments/appt-1", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", method)
	if headers != "" {
		req.Header.Set("Access-Control-Request-Headers", headers)
	}
	return req
}

func TestCORSPreflightForAllowedPatch(t *testing.T) {
	hits := 0
	h := WithCORS(corsPolicy())(appointmentRoutes(&hits))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, preflight("https://APP.example.com", "PATCH", "authorization, x-owner-id, content-type"))

	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if hits != 0 {
		t.Fatal("preflight reached the route")
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://APP.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := rw.Header().Get("Access-Control-Allow-Methods"); got != "GET, PATCH, DELETE" {
		t.Fatalf("unexpected allow methods %q", got)
	}
	if got := rw.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, X-Owner-Id, Content-Type" {
		t.Fatalf("unexpected allow headers %q", got)
	}
	if got := rw.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("unexpected max age %q", got)
	}
	if got := rw.Header().Values("Vary"); len(got) != 3 || got[0] != "Origin" {
		t.Fatalf("unexpected vary %v", got)
	}
}

func TestCORSPreflightRejections(t *testing.T) {
	cases := []struct {
		name    string
		origin  string
		method  string
		headers string
	}{
		{"unknown origin", "https://evil.example.com", "PATCH", ""},
		{"method not allowed", "https://app.example.com", "PUT", ""},
		{"header not allowed", "https://app.example.com", "DELETE", "x-owner-id, x-debug"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hits := 0
			h := WithCORS(corsPolicy())(appointmentRoutes(&hits))
			rw := httptest.NewRecorder()
			h.ServeHTTP(rw, preflight(tc.origin, tc.method, tc.headers))
			if rw.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rw.Code)
			}
			if hits != 0 {
				t.Fatal("preflight reached the route")
			}
			if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Fatalf("expected no allow origin, got %q", got)
			}
		})
	}
}

func TestCORSActualRequest(t *testing.T) {
	hits := 0
	h := WithCORS(corsPolicy())(appointmentRoutes(&hits))

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/appt-1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK || hits != 1 {
		t.Fatalf("expected route to run, got %d hits=%d", rw.Code, hits)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := rw.Header().Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
		t.Fatalf("unexpected expose headers %q", got)
	}
	if got := rw.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Fatalf("actual request carried allow methods %q", got)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/appt-1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if hits != 2 || rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin: hits=%d allow=%q", hits, rw.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	hits := 0
	h := WithCORS(CORSPolicy{})(appointmentRoutes(&hits))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, preflight("https://app.example.com", "PATCH", ""))
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("disabled policy emitted CORS headers")
	}
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected mux 405, got %d", rw.Code)
	}
}

func TestCORSWildcardOrigin(t *testing.T) {
	p := corsPolicy()
	p.AllowedOrigins = []string{"*"}
	hits := 0
	h := WithCORS(p)(appointmentRoutes(&hits))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, preflight("https://anything.example.org", "DELETE", ""))
	if rw.Code != http.StatusNoContent || rw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard 204, got %d %q", rw.Code, rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if got := rw.Header().Get("Access-Control-Allow-Headers"); got != "" {
		t.Fatalf("no headers were requested, got %q", got)
	}
}
