package model

import "github.com/nao1215/imapcheck/internal/probe"

// Check tracks one account through the pipeline: resolution, password
// collection, probing and recording.
type Check struct {
	// Index is the 0-based position of the account in the run.
	Index int

	// Account is the input.
	Account Account

	// Request is the resolved probe request. Its password is cleared as soon
	// as the probe has finished.
	Request probe.Request

	// Result is the outcome. It is meaningful once Done reports true and the
	// check was not skipped.
	Result probe.Result

	// Skipped is true when the row was rejected before it could be probed.
	Skipped bool

	// SkipReason is the notice printed for a skipped row.
	SkipReason string

	done bool
}

// NewCheck creates a pending check for an account.
func NewCheck(index int, account Account) *Check {
	return &Check{Index: index, Account: account}
}

// Finish records the result and drops the password from memory.
func (c *Check) Finish(result probe.Result) {
	c.Result = result
	c.Request.Password = ""
	c.done = true
}

// Skip marks the check as skipped with the given notice.
func (c *Check) Skip(reason string) {
	c.Skipped = true
	c.SkipReason = reason
	c.Request.Password = ""
	c.done = true
}

// Done reports whether the check has a final outcome.
func (c *Check) Done() bool {
	return c.done
}

// Failed reports whether the check counts as a failure. Skipped rows do.
func (c *Check) Failed() bool {
	return c.Skipped || !c.Result.OK
}

// Label returns the result label, or the account label for skipped rows.
func (c *Check) Label() string {
	if c.Skipped || c.Result.Label == "" {
		return c.Account.DisplayLabel()
	}
	return c.Result.Label
}

// Category returns the result category name, or "Skipped".
func (c *Check) Category() string {
	if c.Skipped {
		return "Skipped"
	}
	return c.Result.Category.String()
}

// Detail returns the result detail, or the skip notice.
func (c *Check) Detail() string {
	if c.Skipped {
		return c.SkipReason
	}
	return c.Result.Detail
}
