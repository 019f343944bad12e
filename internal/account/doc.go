// Package account reads the accounts to check and resolves them into probe
// requests.
//
// The batch format is CSV with a header row. The server and username columns
// are required; port, security and label are optional. Header names are
// matched case-insensitively after trimming, blank lines are ignored and a
// leading UTF-8 byte order mark is tolerated.
//
//	server,username,port,security,label
//	imap.example.com,alice@example.com,,ssl,Alice (work)
//	mail.example.org,bob,143,starttls,
//
// Resolution applies the same rules to batch rows and to the single account
// given on the command line: an unknown security token is a configuration
// error for that account, an empty port selects the default for the security
// mode, and a port that is not an integer makes the row skipped.
package account
