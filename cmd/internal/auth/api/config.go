package authapi

// Config holds HTTP-surface settings for the auth handlers.
type Config struct {
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns settings suitable for production.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	return c
}
