package account

import (
	"strconv"
	"time"

	"github.com/nao1215/imapcheck/internal/model"
	"github.com/nao1215/imapcheck/internal/probe"
)

// Resolve turns an account into a probe request without a password.
//
// Errors are *probe.ConfigError for invalid values, which the caller reports
// as a failing result, or *InvalidPortError for a non-integer port, which the
// caller reports as a skipped row. The security token is checked first.
func Resolve(acc model.Account, timeout time.Duration) (probe.Request, error) {
	if _, err := probe.ParseSecurity(acc.Security); err != nil {
		return probe.Request{}, err
	}

	port := 0
	if acc.Port != "" {
		p, err := strconv.Atoi(acc.Port)
		if err != nil {
			return probe.Request{}, &InvalidPortError{Label: acc.DisplayLabel(), Port: acc.Port}
		}
		port = p
	}

	return probe.NewRequest(acc.Server, port, acc.Username, "", acc.Security, timeout)
}

// Label returns the probe label of an account that could not be resolved.
// The port is included when it is a valid integer or can be defaulted from
// the security mode.
func Label(acc model.Account) string {
	port, err := strconv.Atoi(acc.Port)
	if err != nil {
		port = 0
	}

	security := acc.Security
	if sec, err := probe.ParseSecurity(acc.Security); err == nil {
		security = sec.String()
		port = probe.ResolvePort(sec, port)
	}
	return probe.FormatLabel(acc.Username, acc.Server, port, security)
}
