package session

// Config defines runtime configuration for the session subsystem.
//
// The signing secret is passed in explicitly (never read from ambient
// process state here) so the subsystem is testable with fixture values.
type Config struct {
	// Issuer is the value set in the "iss" claim of session tokens.
	Issuer string

	// SigningSecret is the HMAC key for HS256 session tokens.
	// Must be at least 32 bytes.
	SigningSecret []byte
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return ErrConfig
	}
	if len(c.SigningSecret) < 32 {
		return ErrConfig
	}
	return nil
}
