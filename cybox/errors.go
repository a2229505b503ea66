package cybox

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorCode categorizes connection failures.
type ErrorCode int

const (
	// Handshake failures.
	ErrUnknown ErrorCode = iota
	ErrRefused
	ErrTimeout
	ErrDNS
	ErrTLS
	ErrBadURL

	// Mid-session transport failures.
	ErrReset
	ErrAborted
	ErrIO
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrRefused:
		return "connection_refused"
	case ErrTimeout:
		return "timeout"
	case ErrDNS:
		return "dns_failure"
	case ErrTLS:
		return "tls_failure"
	case ErrBadURL:
		return "bad_url"
	case ErrReset:
		return "connection_reset"
	case ErrAborted:
		return "connection_aborted"
	case ErrIO:
		return "io_error"
	default:
		return "unknown"
	}
}

// ClientError is a categorized connection error with a displayable
// message.
type ClientError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ClientError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsHandshakeError reports whether err is a categorized handshake
// failure.
func IsHandshakeError(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case ErrRefused, ErrTimeout, ErrDNS, ErrTLS, ErrBadURL:
		return true
	default:
		return false
	}
}

// classifyDialError maps a handshake failure to a distinct human-readable
// description. The wording is surfaced verbatim in the client UI.
func classifyDialError(err error) *ClientError {
	switch {
	case isDNSError(err):
		return &ClientError{Code: ErrDNS, Message: "DNS/host lookup failed. Controleer de server hostname.", Wrapped: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &ClientError{Code: ErrRefused, Message: "Connection refused. Controleer of de server draait en poort/open host klopt.", Wrapped: err}
	case isTimeout(err):
		return &ClientError{Code: ErrTimeout, Message: "Connection timed out. Controleer netwerk, host en firewall.", Wrapped: err}
	case isTLSError(err):
		return &ClientError{Code: ErrTLS, Message: fmt.Sprintf("TLS handshake failed: %v", err), Wrapped: err}
	default:
		return &ClientError{Code: ErrUnknown, Message: fmt.Sprintf("Connection failed: %v", err), Wrapped: err}
	}
}

// classifyStreamError maps a mid-session transport failure to a
// description used as the disconnect reason.
func classifyStreamError(err error) *ClientError {
	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return &ClientError{Code: ErrReset, Message: "Connection reset by peer.", Wrapped: err}
	case errors.Is(err, syscall.ECONNABORTED):
		return &ClientError{Code: ErrAborted, Message: "Connection aborted.", Wrapped: err}
	case isTimeout(err):
		return &ClientError{Code: ErrTimeout, Message: "Connection timed out.", Wrapped: err}
	case isNetError(err):
		return &ClientError{Code: ErrIO, Message: fmt.Sprintf("Connection I/O error: %v", err), Wrapped: err}
	default:
		return &ClientError{Code: ErrUnknown, Message: fmt.Sprintf("Connection closed with error: %v", err), Wrapped: err}
	}
}

func badURLError(err error) *ClientError {
	return &ClientError{Code: ErrBadURL, Message: fmt.Sprintf("Invalid WebSocket URL: %v", err), Wrapped: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isDNSError(err error) bool {
	var de *net.DNSError
	return errors.As(err, &de)
}

func isTLSError(err error) bool {
	var (
		certErr  *tls.CertificateVerificationError
		recErr   tls.RecordHeaderError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		validErr x509.CertificateInvalidError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &recErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &validErr)
}

func isNetError(err error) bool {
	var oe *net.OpError
	return errors.As(err, &oe)
}
