// Package identity implements taskman's account foundation.
//
// It contains the account model, password hashing, ID primitives, and the
// Postgres-backed account store used by the HTTP layer.
package identity
