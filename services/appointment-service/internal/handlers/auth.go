package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/auth"
	"github.com/md-rashed-zaman/visitbook/libs/httpx"
)

// UserIDHeader names the acting user, recorded when checklist items are completed.
const UserIDHeader = "X-User-Id"

// CORSPolicy admits browser clients on origins to the routes Register mounts. Preflights may
// ask for the identity headers TenantAuth reads and for the request id header; responses
// expose the request id so clients can quote it.
func CORSPolicy(origins []string) httpx.CORSPolicy {
	return httpx.CORSPolicy{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", httpx.OwnerIDHeader, UserIDHeader, httpx.RequestIDHeader},
		ExposedHeaders: []string{httpx.RequestIDHeader},
		MaxAge:         10 * time.Minute,
	}
}

// TenantAuth resolves the tenant of a request. With neither a secret nor a JWKS client
// configured the service sits behind the gateway and trusts its X-Owner-Id header;
// otherwise a bearer token is required. It must pass auth.Claims.Validate, and its
// claims replace any incoming identity headers.
type TenantAuth struct {
	Secret string
	JWKS   *auth.JWKSClient
}

func (a TenantAuth) enabled() bool {
	return a.Secret != "" || a.JWKS != nil
}

func (a TenantAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			if ownerID(r) == "" {
				http.Error(w, "missing "+httpx.OwnerIDHeader, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := a.verify(r.Context(), strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			msg := auth.ErrInvalidToken.Error()
			if errors.Is(err, auth.ErrInvalidToken) {
				msg = err.Error()
			}
			http.Error(w, msg, http.StatusUnauthorized)
			return
		}

		r.Header.Del(httpx.OwnerIDHeader)
		r.Header.Del(UserIDHeader)
		r.Header.Set(httpx.OwnerIDHeader, claims.OwnerID)
		r.Header.Set(UserIDHeader, claims.Sub)
		next.ServeHTTP(w, r)
	})
}

func (a TenantAuth) verify(ctx context.Context, token string) (*auth.Claims, error) {
	if a.JWKS == nil {
		return auth.ParseAndVerifyHS256(token, a.Secret)
	}
	header, err := auth.ParseHeader(token)
	if err != nil {
		return nil, err
	}
	if header.Alg == "RS256" && header.Kid != "" {
		pub, err := a.JWKS.Get(ctx, header.Kid)
		if err != nil {
			return nil, err
		}
		return auth.VerifyRS256(token, pub)
	}
	if a.Secret == "" {
		return nil, auth.ErrInvalidToken
	}
	return auth.ParseAndVerifyHS256(token, a.Secret)
}

func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.OwnerIDHeader))
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}
