package session

import (
	"context"
	"time"
)

// Store abstracts persistence for the per-account token set.
//
// Each token is its own row, so concurrent Issue/RevokeOne/RevokeAll calls
// against the same account are single-statement operations at the store: no
// read-modify-write of a token array, hence no lost issue or lost revoke
// under concurrent load.
type Store interface {
	// Insert adds a token (by hash) to the account's set.
	Insert(ctx context.Context, now time.Time, accountID, tokenHash string) error

	// AccountIDByHash resolves a token hash to its owning account.
	// Returns ErrInvalidToken when the hash is not in any set.
	AccountIDByHash(ctx context.Context, tokenHash string) (string, error)

	// DeleteByHash removes one token from the account's set.
	// Removing an absent token is a no-op (idempotent).
	DeleteByHash(ctx context.Context, accountID, tokenHash string) error

	// DeleteAll clears the account's entire token set.
	DeleteAll(ctx context.Context, accountID string) error
}
