package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Service implements the high-level token-set operations.
//
// It issues signed tokens into the account's set, resolves presented tokens
// back to an account, and supports per-token and per-account revocation.
type Service struct {
	tokens TokenManager
	store  Store
}

// NewService constructs a Service with the provided token manager and store.
func NewService(store Store, tokens TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Issue signs a new token for the account and adds it to the token set.
//
// Issue may be called repeatedly for the same account; prior tokens stay
// valid (one token per logged-in device). If persisting the token fails the
// token is not returned, so a caller never holds a token the set does not.
func (s *Service) Issue(ctx context.Context, now time.Time, accountID string) (string, error) {
	token, err := s.tokens.Issue(accountID, now)
	if err != nil {
		return "", err
	}

	if err := s.store.Insert(ctx, now, accountID, hashTokenHex(token)); err != nil {
		return "", err
	}

	return token, nil
}

// Resolve maps a presented bearer token to the owning account ID.
//
// A token resolves only if (a) its signature verifies and (b) it is still in
// the owning account's set. A signature-valid token that has been revoked
// (removed from the set) fails exactly like a forged one.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	// Sanity bounds to avoid hashing pathological inputs.
	if token == "" || len(token) > 4096 {
		return "", ErrInvalidToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}

	accountID, err := s.store.AccountIDByHash(ctx, hashTokenHex(token))
	if err != nil {
		return "", err
	}

	if accountID != claims.AccountID {
		return "", ErrInvalidToken
	}

	return accountID, nil
}

// RevokeOne removes the presented token from the account's set.
// Revoking a token that is already absent is a no-op.
func (s *Service) RevokeOne(ctx context.Context, accountID, token string) error {
	return s.store.DeleteByHash(ctx, accountID, hashTokenHex(token))
}

// RevokeAll clears the account's entire token set (logout everywhere).
func (s *Service) RevokeAll(ctx context.Context, accountID string) error {
	return s.store.DeleteAll(ctx, accountID)
}

// hashTokenHex is the server-side storage form of a token. The raw token
// string is held only by clients.
func hashTokenHex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
