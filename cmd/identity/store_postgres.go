package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "taskman").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "taskman",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// CreateAccount creates a new account and its credential transactionally.
func (s *PostgresStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return Account{}, pgInvalid(op, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return Account{}, pgInvalid(op, "valid email is required")
	}
	if in.Age != nil && *in.Age < 0 {
		return Account{}, pgInvalid(op, "age must not be negative")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	emailNorm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password, DefaultArgon2idParams())
	if err != nil {
		return Account{}, pgInvalid(op, err.Error())
	}

	accountID, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	accounts := pgIdent(s.schema, "accounts")
	creds := pgIdent(s.schema, "account_credentials")

	_, err = tx.Exec(ctx,
		`INSERT INTO `+accounts+` (
		     id, name, email, email_norm, age, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		accountID, name, email, emailNorm, in.Age, now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+creds+` (account_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)`,
		accountID, pwHash, now,
	)
	if err != nil {
		return Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}

	return Account{
		ID:        accountID,
		Name:      name,
		Email:     email,
		EmailNorm: emailNorm,
		Age:       in.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID loads an account by ID.
func (s *PostgresStore) GetByID(ctx context.Context, accountID string) (Account, error) {
	const op = "identity.GetByID"

	if strings.TrimSpace(accountID) == "" {
		return Account{}, pgInvalid(op, "missing account_id")
	}

	accounts := pgIdent(s.schema, "accounts")

	var out Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, email_norm, age, created_at, updated_at
		   FROM `+accounts+`
		  WHERE id = $1`,
		accountID,
	).Scan(&out.ID, &out.Name, &out.Email, &out.EmailNorm, &out.Age, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}

	return out, nil
}

// GetAuthByEmail loads an account plus credential by normalized email.
func (s *PostgresStore) GetAuthByEmail(ctx context.Context, email string) (AccountAuth, error) {
	const op = "identity.GetAuthByEmail"

	emailNorm := NormalizeEmail(email)
	if emailNorm == "" {
		return AccountAuth{}, pgInvalid(op, "missing email")
	}

	accounts := pgIdent(s.schema, "accounts")
	creds := pgIdent(s.schema, "account_credentials")

	var out AccountAuth
	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.name, a.email, a.email_norm, a.age, a.created_at, a.updated_at, c.password_hash
		   FROM `+accounts+` a
		   JOIN `+creds+` c ON c.account_id = a.id
		  WHERE a.email_norm = $1`,
		emailNorm,
	).Scan(
		&out.Account.ID,
		&out.Account.Name,
		&out.Account.Email,
		&out.Account.EmailNorm,
		&out.Account.Age,
		&out.Account.CreatedAt,
		&out.Account.UpdatedAt,
		&out.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountAuth{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return AccountAuth{}, err
	}

	return out, nil
}

// UpdateAccount applies a partial profile update and returns the updated account.
// All provided fields are validated before any write happens.
func (s *PostgresStore) UpdateAccount(ctx context.Context, accountID string, in UpdateAccountInput) (Account, error) {
	const op = "identity.UpdateAccount"

	if strings.TrimSpace(accountID) == "" {
		return Account{}, pgInvalid(op, "missing account_id")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := []string{"updated_at = $1"}
	args := []any{now}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Account{}, pgInvalid(op, "name must not be empty")
		}
		args = append(args, name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return Account{}, pgInvalid(op, "valid email is required")
		}
		args = append(args, email)
		set = append(set, fmt.Sprintf("email = $%d", len(args)))
		args = append(args, NormalizeEmail(email))
		set = append(set, fmt.Sprintf("email_norm = $%d", len(args)))
	}
	if in.Age != nil {
		if *in.Age < 0 {
			return Account{}, pgInvalid(op, "age must not be negative")
		}
		args = append(args, *in.Age)
		set = append(set, fmt.Sprintf("age = $%d", len(args)))
	}

	var pwHash string
	if in.Password != nil {
		var err error
		pwHash, err = HashPassword(*in.Password, DefaultArgon2idParams())
		if err != nil {
			return Account{}, pgInvalid(op, err.Error())
		}
	}

	accounts := pgIdent(s.schema, "accounts")
	creds := pgIdent(s.schema, "account_credentials")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	args = append(args, accountID)
	query := `UPDATE ` + accounts + `
	     SET ` + strings.Join(set, ", ") + `
	   WHERE id = $` + fmt.Sprint(len(args)) + `
	 RETURNING id, name, email, email_norm, age, created_at, updated_at`

	var out Account
	err = tx.QueryRow(ctx, query, args...).Scan(
		&out.ID, &out.Name, &out.Email, &out.EmailNorm, &out.Age, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}

	if pwHash != "" {
		ct, err := tx.Exec(ctx,
			`UPDATE `+creds+`
			    SET password_hash = $1, updated_at = $2
			  WHERE account_id = $3`,
			pwHash, now, accountID,
		)
		if err != nil {
			return Account{}, err
		}
		if ct.RowsAffected() == 0 {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}

	return out, nil
}

// DeleteAccount removes the account row; credentials, session tokens and
// owned tasks go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteAccount(ctx context.Context, accountID string) error {
	const op = "identity.DeleteAccount"

	if strings.TrimSpace(accountID) == "" {
		return pgInvalid(op, "missing account_id")
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`DELETE FROM `+accounts+` WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// SetAvatar stores the canonical avatar bytes for an account.
func (s *PostgresStore) SetAvatar(ctx context.Context, accountID string, avatar []byte, now time.Time) error {
	const op = "identity.SetAvatar"

	if strings.TrimSpace(accountID) == "" {
		return pgInvalid(op, "missing account_id")
	}
	if len(avatar) == 0 {
		return pgInvalid(op, "empty avatar")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET avatar = $1, updated_at = $2
		  WHERE id = $3`,
		avatar, now, accountID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// ClearAvatar removes the avatar bytes (idempotent when already absent).
func (s *PostgresStore) ClearAvatar(ctx context.Context, accountID string, now time.Time) error {
	const op = "identity.ClearAvatar"

	if strings.TrimSpace(accountID) == "" {
		return pgInvalid(op, "missing account_id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET avatar = NULL, updated_at = $1
		  WHERE id = $2`,
		now, accountID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// GetAvatar returns the stored avatar bytes. Missing account and missing
// avatar are both reported as not found; callers must not be able to tell
// the two apart.
func (s *PostgresStore) GetAvatar(ctx context.Context, accountID string) ([]byte, error) {
	const op = "identity.GetAvatar"

	if strings.TrimSpace(accountID) == "" {
		return nil, pgInvalid(op, "missing account_id")
	}

	accounts := pgIdent(s.schema, "accounts")

	var avatar []byte
	err := s.pool.QueryRow(ctx,
		`SELECT avatar FROM `+accounts+` WHERE id = $1`,
		accountID,
	).Scan(&avatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundError{Op: op, Resource: "avatar"}
	}
	if err != nil {
		return nil, err
	}
	if len(avatar) == 0 {
		return nil, NotFoundError{Op: op, Resource: "avatar"}
	}
	return avatar, nil
}

// ---- helpers ----

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to heuristic substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_accounts_email_norm":
		return "email", true
	case "uq_session_tokens_token_hash":
		return "token", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "token"):
			return "token", true
		default:
			return "unique", true
		}
	}
}
