// Package main provides the entry point for the imapcheck CLI.
//
// imapcheck verifies IMAP credentials by logging in, selecting a mailbox
// read-only and logging out. Passwords are prompted without echo and are
// never stored.
//
// Usage:
//
//	imapcheck --server imap.example.com --username alice@example.com
//	imapcheck --csv accounts.csv
//
// See --help for all available options.
package main

// main is the entry point for imapcheck.
func main() {
	Execute()
}
