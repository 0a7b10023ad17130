package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/branchledger/internal/domain"
)

const (
	// ActorIDHeader names the caller when token auth is disabled.
	ActorIDHeader = "X-Actor-ID"
	// BranchIDHeader names the caller's branch when token auth is disabled.
	BranchIDHeader = "X-Branch-ID"
)

// TokenVerifier maps a bearer token to the actor it identifies.
type TokenVerifier interface {
	Actor(token string) (domain.Actor, error)
}

// Actor puts the calling actor in the request context. With a verifier every
// request needs a valid bearer token; without one the actor comes from the
// X-Actor-ID and X-Branch-ID headers and may be absent.
func Actor(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				id := strings.TrimSpace(r.Header.Get(ActorIDHeader))
				if id == "" {
					next.ServeHTTP(w, r)
					return
				}

				actor := domain.Actor{ID: id, BranchID: strings.TrimSpace(r.Header.Get(BranchIDHeader))}
				withActorFields(r, actor.ID, actor.BranchID)
				next.ServeHTTP(w, r.WithContext(domain.ContextWithActor(r.Context(), actor)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			actor, err := verifier.Actor(parts[1])
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			withActorFields(r, actor.ID, actor.BranchID)
			next.ServeHTTP(w, r.WithContext(domain.ContextWithActor(r.Context(), actor)))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
