package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfront/internal/auth"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	handler := CORS(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
}

func TestAuthenticate_TokenSources(t *testing.T) {
	resolver := auth.NewKeyResolver("admin-key")

	tests := []struct {
		name    string
		prepare func(*http.Request)
		wantID  string
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-42") },
			wantID:  "42",
		},
		{
			name:    "api key header",
			prepare: func(r *http.Request) { r.Header.Set("X-API-Key", "admin-key") },
			wantID:  "admin",
		},
		{
			name:    "access_token query parameter",
			prepare: func(r *http.Request) { r.URL.RawQuery = "access_token=user-7" },
			wantID:  "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *auth.Identity
			handler := Authenticate(resolver, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = auth.FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.UserID)
		})
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	resolver := auth.NewKeyResolver("admin-key")
	handler := Authenticate(resolver, zerolog.Nop())(okHandler())

	tests := []struct {
		name    string
		prepare func(*http.Request)
	}{
		{name: "no credential", prepare: func(*http.Request) {}},
		{
			name:    "unknown token",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bogus") },
		},
		{
			name:    "malformed authorization header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "user-42") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(zerolog.Nop())(okHandler())

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		ctx := auth.WithIdentity(req.Context(), &auth.Identity{UserID: "admin", Role: auth.RoleAdmin})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("customer rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		ctx := auth.WithIdentity(req.Context(), &auth.Identity{UserID: "42", Role: auth.RoleUser})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})

	t.Run("missing identity rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLogging_PreservesResponse(t *testing.T) {
	handler := Logging(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
