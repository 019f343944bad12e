package socks

import "errors"

// Proxy errors.
var (
	// ErrInvalidProxyURL is returned when the proxy URL cannot be parsed or
	// lacks a host and port.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected socks5://[user:pass@]host:port")

	// ErrUnsupportedScheme is returned for proxy schemes other than socks5 and
	// socks5h.
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme: only socks5 and socks5h are supported")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak
	// SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyRejected is returned when the proxy accepts none of the offered
	// authentication methods.
	ErrProxyRejected = errors.New("proxy rejected the offered authentication methods")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)

// ProxyStatus is the outcome of CheckConnection.
type ProxyStatus int

const (
	// ProxyStatusOK means the proxy negotiated a SOCKS5 method.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType means the proxy answered with something other
	// than SOCKS5.
	ProxyStatusWrongType

	// ProxyStatusRejected means the proxy refused every offered method,
	// usually because it requires credentials that were not configured.
	ProxyStatusRejected

	// ProxyStatusCannotConnect means the TCP connection to the proxy failed.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout means the proxy did not answer in time.
	ProxyStatusTimeout
)

// String returns a human-readable description of the status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusRejected:
		return "authentication rejected"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusRejected:
		return ErrProxyRejected
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
