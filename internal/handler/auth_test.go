package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigstastore/marketplace/internal/domain/auth"
)

type mockTokenRepo struct {
	byHash map[string]*auth.TokenInfo
}

func (m *mockTokenRepo) FindByHash(_ context.Context, hash string) (*auth.TokenInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	return info, nil
}

const testPepper = "pepper"

func hashToken(raw string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func newAuthHandler(tokens *mockTokenRepo) *Handler {
	return NewHandler(
		Config{TokenPepper: []byte(testPepper)},
		nil, nil, nil, nil, nil,
		tokens,
		nil,
	)
}

func identityEcho(t *testing.T, captured **auth.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		*captured = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := &mockTokenRepo{byHash: map[string]*auth.TokenInfo{
		hashToken("tok-1"): {ID: "t1", TokenHash: hashToken("tok-1"), UserID: "u1", Scopes: []string{"admin"}},
	}}
	h := newAuthHandler(tokens)

	var captured *auth.Identity
	handler := h.Authenticate(identityEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "u1", captured.UserID)
	assert.True(t, captured.IsAdmin())
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	h := newAuthHandler(&mockTokenRepo{})
	handler := h.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	h := newAuthHandler(&mockTokenRepo{})
	handler := h.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_ForbidsNonAdmin(t *testing.T) {
	tokens := &mockTokenRepo{byHash: map[string]*auth.TokenInfo{
		hashToken("tok-user"): {ID: "t2", TokenHash: hashToken("tok-user"), UserID: "u2"},
	}}
	h := newAuthHandler(tokens)

	handler := h.Authenticate(h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("admin handler must not run")
	})))

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/sellers/s1/billing", nil)
	req.Header.Set("Authorization", "Bearer tok-user")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	tokens := &mockTokenRepo{byHash: map[string]*auth.TokenInfo{
		hashToken("tok-admin"): {ID: "t3", TokenHash: hashToken("tok-admin"), UserID: "u3", Scopes: []string{auth.ScopeAdmin}},
	}}
	h := newAuthHandler(tokens)

	handler := h.Authenticate(h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/sellers/s1/billing", nil)
	req.Header.Set("Authorization", "Bearer tok-admin")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
