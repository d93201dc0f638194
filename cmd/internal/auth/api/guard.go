package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"taskman/cmd/identity"
	"taskman/cmd/internal/auth/session"
)

// Principal is the authenticated account plus the exact token it presented.
// The raw token is kept so logout can revoke this session and not all of them.
type Principal struct {
	Account identity.Account
	Token   string
}

type principalKey struct{}

// WithPrincipal attaches the resolved principal to the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal attached by the guard.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Guard intercepts authenticated routes: it resolves the bearer token to an
// account and rejects the request before the handler runs otherwise.
//
// The guard only reads; it never mutates the account or the token set.
type Guard struct {
	log      *slog.Logger
	sessions *session.Service
	accounts identity.Store
}

// NewGuard constructs the access-control guard.
func NewGuard(log *slog.Logger, sessions *session.Service, accounts identity.Store) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{log: log, sessions: sessions, accounts: accounts}
}

// Require wraps a handler with bearer-token authentication.
//
// A missing or malformed header, a failed signature, and a revoked token all
// produce the same 401; the handler never executes in any of those cases.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
			return
		}

		ctx := r.Context()

		accountID, err := g.sessions.Resolve(ctx, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
			return
		}

		account, err := g.accounts.GetByID(ctx, accountID)
		if err != nil {
			if !identity.IsNotFound(err) {
				g.log.Error("auth.guard.load_account.fail", "err", err)
			}
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Principal{
			Account: account,
			Token:   token,
		})))
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
