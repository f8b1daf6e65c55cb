package flight

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/kbukum/inflight/errors"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{"transport", TransportError("net", 61, stderrors.New("refused")), []string{"TRANSPORT_ERROR", "(net 61)", "refused"}},
		{"status", StatusCodeError(&Response{StatusCode: 404}), []string{"STATUS_CODE", "(status 404)", "404"}},
		{"no cause", TransportError("http", 0, nil), []string{"network call failed"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, w := range tc.want {
				if !strings.Contains(msg, w) {
					t.Errorf("expected %q in %q", w, msg)
				}
			}
		})
	}
}

func TestError_Predicates(t *testing.T) {
	checks := map[errors.ErrorCode]func(error) bool{
		errors.ErrCodeTransport:     IsTransport,
		errors.ErrCodeCancelled:     IsCancelled,
		errors.ErrCodeStatusCode:    IsStatusCode,
		errors.ErrCodeImageMapping:  IsImageMapping,
		errors.ErrCodeJSONMapping:   IsJSONMapping,
		errors.ErrCodeStringMapping: IsStringMapping,
		errors.ErrCodeObjectMapping: IsObjectMapping,
	}
	for code := range checks {
		t.Run(string(code), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{Code: code})
			for other, pred := range checks {
				if got := pred(err); got != (other == code) {
					t.Errorf("predicate for %s returned %v", other, got)
				}
			}
			if errors.CodeOf(err) != code {
				t.Errorf("CodeOf = %s", errors.CodeOf(err))
			}
		})
	}
	if IsTransport(stderrors.New("plain")) {
		t.Error("plain errors match no predicate")
	}
}

func TestError_Retryable(t *testing.T) {
	if !TransportError("net", 0, nil).Retryable() {
		t.Error("transport errors are retryable")
	}
	if StatusCodeError(&Response{StatusCode: 500}).Retryable() {
		t.Error("status code errors are not retryable")
	}
	if !errors.IsRetryable(fmt.Errorf("x: %w", TransportError("net", 0, nil))) {
		t.Error("errors.IsRetryable should see through wrapping")
	}
}

func TestAsTransportError(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: stderrors.New("refused")}
	tests := []struct {
		name   string
		err    error
		code   errors.ErrorCode
		domain string
	}{
		{"net error", opErr, errors.ErrCodeTransport, "net"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), errors.ErrCodeTransport, "timeout"},
		{"canceled", context.Canceled, errors.ErrCodeCancelled, ""},
		{"flight error kept", TransportError("tls", 42, nil), errors.ErrCodeTransport, "tls"},
		{"other", stderrors.New("boom"), errors.ErrCodeTransport, "transport"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fe := asTransportError(tc.err)
			if fe.Code != tc.code || fe.Domain != tc.domain {
				t.Errorf("got code %s domain %q", fe.Code, fe.Domain)
			}
		})
	}

	orig := TransportError("tls", 42, nil)
	fe := asTransportError(orig)
	fe.DomainCode = 500
	if orig.DomainCode != 42 {
		t.Error("asTransportError must copy, not alias, a *Error")
	}
}
