package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskman/cmd/identity/ids"
)

// Claims is the identity envelope carried by a session token.
type Claims struct {
	AccountID string
	IssuedAt  time.Time
	Issuer    string
}

// TokenManager signs and verifies session tokens.
//
// Tokens carry no expiry claim: validity is signature + continued presence
// in the account's token set. Revocation is removal from the set, not
// signature invalidation.
type TokenManager interface {
	Issue(accountID string, now time.Time) (string, error)
	Verify(token string) (Claims, error)
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

type jwtManager struct {
	issuer string
	secret []byte
}

// NewJWTManager builds a TokenManager based on HS256 JWTs.
func NewJWTManager(cfg Config) (TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &jwtManager{issuer: cfg.Issuer, secret: cfg.SigningSecret}, nil
}

func (m *jwtManager) Issue(accountID string, now time.Time) (string, error) {
	// The jti claim makes every issued token a distinct string. Without it,
	// two logins in the same second would mint identical tokens (iat has
	// one-second precision), collapsing two sessions into one.
	jti, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			Issuer:   m.issuer,
			Subject:  accountID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(m.secret)
}

func (m *jwtManager) Verify(tokenString string) (Claims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	var iat time.Time
	if claims.IssuedAt != nil {
		iat = claims.IssuedAt.Time
	}

	return Claims{
		AccountID: claims.Subject,
		IssuedAt:  iat,
		Issuer:    claims.Issuer,
	}, nil
}
