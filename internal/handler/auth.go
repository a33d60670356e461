package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gigstastore/marketplace/internal/domain/auth"
)

type ctxKey int

const identityKey ctxKey = iota

// IdentityFrom extracts the authenticated identity from a request context.
// The bool is false on unauthenticated requests.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok
}

// Authenticate resolves the bearer session token to an identity. The stored
// lookup key is HMAC-SHA256 of the raw token under a server-side pepper, so
// a leaked token table cannot be replayed without the pepper.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		mac := hmac.New(sha256.New, h.tokenPepper)
		mac.Write([]byte(raw))
		hash := mac.Sum(nil)

		info, err := h.tokens.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// The lookup already matched, but compare anyway in constant time in
		// case the repository returned a stale or wrong row.
		stored, err := hex.DecodeString(info.TokenHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		identity := &auth.Identity{UserID: info.UserID, Scopes: info.Scopes}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// RequireAdmin rejects identities without the admin scope.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
