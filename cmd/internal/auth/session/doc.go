// Package session implements taskman's session token set.
//
// Each account holds a set of currently valid bearer tokens, one per login.
// A token is valid only while its signature verifies AND it is still present
// in the set; logout removes one token, logout-all clears the set.
package session
