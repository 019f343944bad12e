package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoAccounts is returned when neither --csv nor --server is given.
	ErrNoAccounts = errors.New("no accounts specified: use --csv or --server")

	// ErrConflictingSources is returned when both --csv and --server are given.
	ErrConflictingSources = errors.New("conflicting account sources: --csv and --server cannot be used together")

	// ErrMissingUsername is returned for a single-account check without
	// --username.
	ErrMissingUsername = errors.New("--username is required with --server")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate: must be non-negative")

	// ErrEmptyMailbox is returned when the mailbox name is empty.
	ErrEmptyMailbox = errors.New("invalid mailbox: must not be empty")

	// ErrInvalidAuth is returned for an unknown authentication command.
	ErrInvalidAuth = errors.New("invalid auth: must be one of: login, plain")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: must be one of: text, json, markdown")
)
