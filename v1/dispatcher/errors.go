package dispatcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Common dispatcher errors
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("dispatcher: invalid batch")

	// ErrPoolClosed is returned when acquiring a slot from a closed pool.
	ErrPoolClosed = errors.New("dispatcher: pool is closed")
)

// ValidationError reports a malformed batch. It is the only error Dispatch
// returns, and it is returned before anything is sent downstream.
type ValidationError struct {
	BatchID string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.BatchID == "" {
		return "dispatcher: invalid batch: " + e.Reason
	}
	return fmt.Sprintf("dispatcher: invalid batch %q: %s", e.BatchID, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsValidationError checks if the error is a malformed batch error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// MemberError is the error view of a member that did not succeed.
type MemberError struct {
	MemberID string
	Status   Status
	Cause    string
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("dispatcher: member %q %s: %s", e.MemberID, e.Status, e.Cause)
}

// BatchIncompleteError summarises a batch in which some members did not succeed.
// It is never returned by Dispatch; observers receive it to tell partial
// results apart from complete ones.
type BatchIncompleteError struct {
	BatchID  string
	Failed   int
	TimedOut int
}

func (e *BatchIncompleteError) Error() string {
	return fmt.Sprintf("dispatcher: batch %q incomplete: %d failed, %d timed out", e.BatchID, e.Failed, e.TimedOut)
}

// Cause tags recorded in MemberOutcome.Error.
const (
	CauseConnectionRefused = "connection_refused"
	CauseConnectionReset   = "connection_reset"
	CauseDNSFailure        = "dns_failure"
	CauseTLSFailure        = "tls_failure"
	CauseMalformedResponse = "malformed_response"
	CauseTransportTimeout  = "transport_timeout"
	CauseInvalidRequest    = "invalid_request"
	CauseTransportError    = "transport_error"
	CausePoolClosed        = "pool_closed"

	CauseDeadlineExceeded = "deadline_exceeded"
	CausePoolExhausted    = "pool_exhausted"
	CauseCancelled        = "cancelled"
)

// classifyTransportError maps an error returned by the HTTP round trip to a
// cause tag. Context errors are handled by the caller because they decide
// between Failed and TimedOut.
func classifyTransportError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CauseConnectionRefused
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return CauseConnectionReset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// the peer closed the connection without a complete response
		return CauseMalformedResponse
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CauseDNSFailure
	}

	if isTLSError(err) {
		return CauseTLSFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTransportTimeout
	}

	return classifyByMessage(strings.ToLower(err.Error()))
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		authErr     x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidCert)
}

// classifyByMessage is the fallback for errors net/http only exposes as text.
func classifyByMessage(msg string) string {
	switch {
	case strings.Contains(msg, "connection refused"):
		return CauseConnectionRefused
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "broken pipe"):
		return CauseConnectionReset
	case strings.Contains(msg, "malformed http"),
		strings.Contains(msg, "malformed mime header"),
		strings.Contains(msg, "bad status line"),
		strings.Contains(msg, "server gave http response to https client"),
		// the peer answered and hung up before the transport read loop started
		strings.Contains(msg, "readlooppeekfaillocked"),
		strings.Contains(msg, "server closed idle connection"):
		return CauseMalformedResponse
	case strings.Contains(msg, "tls:"), strings.Contains(msg, "x509:"):
		return CauseTLSFailure
	case strings.Contains(msg, "no such host"):
		return CauseDNSFailure
	default:
		return CauseTransportError
	}
}

// timeoutCause names why a member was cut off by its batch context.
func timeoutCause(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		return CauseCancelled
	}
	return CauseDeadlineExceeded
}
