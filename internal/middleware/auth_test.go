package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appforge-ai/AppForge/internal/auth"
	"github.com/appforge-ai/AppForge/internal/domain"
	"github.com/appforge-ai/AppForge/internal/middleware"
)

// mintedLookup returns a full key plus a KeyLookup that knows only that key.
func mintedLookup(t *testing.T) (string, middleware.KeyLookup) {
	t.Helper()
	key, prefix, hash, err := auth.Mint()
	if err != nil {
		t.Fatalf("mint key: %v", err)
	}
	lookup := func(_ context.Context, p string) ([]byte, error) {
		if p != prefix {
			return nil, domain.ErrNotFound
		}
		return hash, nil
	}
	return key, lookup
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	handler := middleware.Auth(nil, false)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthEnabledNoHeaderReturns401(t *testing.T) {
	_, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAcceptsValidAPIKeyHeader(t *testing.T) {
	key, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", http.NoBody)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthAcceptsBearerKey(t *testing.T) {
	key, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsUnknownKey(t *testing.T) {
	_, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	other, _, _, err := auth.Mint()
	if err != nil {
		t.Fatalf("mint key: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", http.NoBody)
	req.Header.Set("X-API-Key", other)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthHealthIsPublic(t *testing.T) {
	_, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthWebSocketQueryKey(t *testing.T) {
	key, lookup := mintedLookup(t)
	handler := middleware.Auth(lookup, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/ws?instance=p1&key="+key, http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
