// Package prompt supplies passwords to the checker.
//
// The checker never reads a password itself. It asks a PasswordSource, which
// is the terminal in normal use, a fixed value when --password is given and a
// function in tests.
package prompt
