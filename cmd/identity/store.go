package identity

import (
	"context"
	"time"
)

// Account is taskman's canonical security principal.
// Avatar bytes are stored alongside the account but are never loaded by the
// regular lookups; use GetAvatar for that.
type Account struct {
	ID        string
	Name      string
	Email     string
	EmailNorm string
	Age       *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountAuth bundles an account with its stored credential for login checks.
// PasswordHash never leaves this package boundary except to VerifyPassword.
type AccountAuth struct {
	Account      Account
	PasswordHash string
}

// CreateAccountInput describes a registration request.
type CreateAccountInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
	Now      time.Time
}

// UpdateAccountInput is a partial profile update. Nil fields are left unchanged.
// Password, when set, is re-hashed before storage.
type UpdateAccountInput struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
	Now      time.Time
}

// Store is the account persistence boundary.
type Store interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	GetByID(ctx context.Context, accountID string) (Account, error)
	GetAuthByEmail(ctx context.Context, email string) (AccountAuth, error)
	UpdateAccount(ctx context.Context, accountID string, in UpdateAccountInput) (Account, error)

	// DeleteAccount removes the account. Owned tasks and session tokens are
	// removed with it (schema-level cascade).
	DeleteAccount(ctx context.Context, accountID string) error

	SetAvatar(ctx context.Context, accountID string, avatar []byte, now time.Time) error
	ClearAvatar(ctx context.Context, accountID string, now time.Time) error
	GetAvatar(ctx context.Context, accountID string) ([]byte, error)
}
