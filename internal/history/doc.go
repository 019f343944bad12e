// Package history provides SQLite-based storage of check results.
//
// Each finished check is stored with its run id, label, server, username,
// port, security mode, category and detail. Passwords are never stored: the
// schema has no column for them and records are built from the resolved
// request, whose password has already been cleared.
//
// The database uses modernc.org/sqlite, a CGO-free driver, in WAL mode.
package history
