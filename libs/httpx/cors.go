package httpx

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy lists what browsers on AllowedOrigins may send. Origins match case-insensitively
// and "*" admits any origin. Methods and headers are compared the way browsers send them in
// Access-Control-Request-Method and Access-Control-Request-Headers.
type CORSPolicy struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// WithCORS answers preflights itself and never forwards them. A preflight for an unknown
// origin, a method outside AllowedMethods or a header outside AllowedHeaders gets 403 with no
// Access-Control headers. Actual requests always reach next; matching origins get
// Allow-Origin and Expose-Headers. An empty AllowedOrigins disables the middleware.
func WithCORS(p CORSPolicy) Middleware {
	if len(p.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	origins := normalizeList(p.AllowedOrigins, strings.ToLower)
	methods := normalizeList(p.AllowedMethods, strings.ToUpper)
	headers := normalizeList(p.AllowedHeaders, http.CanonicalHeaderKey)
	exposed := strings.Join(normalizeList(p.ExposedHeaders, http.CanonicalHeaderKey), ", ")
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			reqMethod := r.Header.Get("Access-Control-Request-Method")
			preflight := r.Method == http.MethodOptions && origin != "" && reqMethod != ""
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			out := w.Header()
			out.Add("Vary", "Origin")
			allowOrigin, ok := matchOrigin(origin, origins)

			if !preflight {
				if ok {
					out.Set("Access-Control-Allow-Origin", allowOrigin)
					if exposed != "" {
						out.Set("Access-Control-Expose-Headers", exposed)
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			out.Add("Vary", "Access-Control-Request-Method")
			out.Add("Vary", "Access-Control-Request-Headers")
			requested := normalizeList(strings.Split(r.Header.Get("Access-Control-Request-Headers"), ","), http.CanonicalHeaderKey)
			if !ok || !slices.Contains(methods, strings.ToUpper(reqMethod)) || !subset(requested, headers) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			out.Set("Access-Control-Allow-Origin", allowOrigin)
			out.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
			if len(requested) > 0 {
				out.Set("Access-Control-Allow-Headers", strings.Join(requested, ", "))
			}
			if p.MaxAge > 0 {
				out.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func normalizeList(values []string, canon func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, canon(trimmed))
	}
	return out
}

func matchOrigin(origin string, allowed []string) (string, bool) {
	lower := strings.ToLower(origin)
	for _, candidate := range allowed {
		if candidate == "*" {
			return "*", true
		}
		if candidate == lower {
			return origin, true
		}
	}
	return "", false
}

func subset(values, allowed []string) bool {
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return false
		}
	}
	return true
}
