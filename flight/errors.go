package flight

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/kbukum/inflight/errors"
)

// Error is the error delivered on every flight stream.
type Error struct {
	// Code is the error kind, one of the errors.ErrCode* values.
	Code errors.ErrorCode
	// Message is a human-readable description.
	Message string
	// Domain names the layer a transport error came from, e.g. "net" or "http".
	Domain string
	// DomainCode is the numeric code within Domain. When a transport error
	// arrives together with a response, it is replaced by the status code.
	DomainCode int
	// StatusCode is the HTTP status of Response, or 0 when none arrived.
	StatusCode int
	// Response is the response the error is about, when there is one.
	Response *Response
	// Value is the partially decoded value for shape mismatches.
	Value any
	// Err is the underlying cause.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Domain != "" {
		fmt.Fprintf(&b, " (%s %d)", e.Domain, e.DomainCode)
	} else if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the error kind.
func (e *Error) ErrorCode() errors.ErrorCode { return e.Code }

// Retryable reports whether the same call might succeed if tried again.
func (e *Error) Retryable() bool { return errors.IsRetryableCode(e.Code) }

// TransportError creates a transport error with the given domain and code.
func TransportError(domain string, code int, err error) *Error {
	msg := "network call failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:       errors.ErrCodeTransport,
		Message:    msg,
		Domain:     domain,
		DomainCode: code,
		Err:        err,
	}
}

// StatusCodeError reports a response whose status is outside the accepted range.
func StatusCodeError(resp *Response) *Error {
	return &Error{
		Code:       errors.ErrCodeStatusCode,
		Message:    fmt.Sprintf("status code %d is outside the accepted range", resp.StatusCode),
		StatusCode: resp.StatusCode,
		Response:   resp,
	}
}

func mappingError(code errors.ErrorCode, msg string, resp *Response, err error) *Error {
	e := &Error{Code: code, Message: msg, Response: resp, Err: err}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}

func cancelledError(msg string) *Error {
	return &Error{Code: errors.ErrCodeCancelled, Message: msg, Err: context.Canceled}
}

func invalidInputError(err error) *Error {
	return &Error{Code: errors.ErrCodeInvalidInput, Message: "target could not be resolved", Err: err}
}

// asTransportError converts whatever the transport returned into a transport
// (or cancellation) error, keeping the domain and code of a *Error.
func asTransportError(err error) *Error {
	var fe *Error
	if stderrors.As(err, &fe) {
		c := *fe
		return &c
	}
	if stderrors.Is(err, context.Canceled) {
		return cancelledError("network call was cancelled")
	}
	return TransportError(domainOf(err), 0, err)
}

func domainOf(err error) string {
	var (
		urlErr *url.Error
		netErr net.Error
	)
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case stderrors.As(err, &netErr):
		return "net"
	case stderrors.As(err, &urlErr):
		return "url"
	default:
		return "transport"
	}
}

func hasCode(err error, code errors.ErrorCode) bool {
	var fe *Error
	return stderrors.As(err, &fe) && fe.Code == code
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool { return hasCode(err, errors.ErrCodeTransport) }

// IsCancelled reports whether err reports a cancelled call.
func IsCancelled(err error) bool { return hasCode(err, errors.ErrCodeCancelled) }

// IsStatusCode reports whether err is a status code error.
func IsStatusCode(err error) bool { return hasCode(err, errors.ErrCodeStatusCode) }

// IsImageMapping reports whether err is an image decoding error.
func IsImageMapping(err error) bool { return hasCode(err, errors.ErrCodeImageMapping) }

// IsJSONMapping reports whether err is a JSON decoding or shape error.
func IsJSONMapping(err error) bool { return hasCode(err, errors.ErrCodeJSONMapping) }

// IsStringMapping reports whether err is a text decoding error.
func IsStringMapping(err error) bool { return hasCode(err, errors.ErrCodeStringMapping) }

// IsObjectMapping reports whether err is a typed decoding error.
func IsObjectMapping(err error) bool { return hasCode(err, errors.ErrCodeObjectMapping) }

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
