package flight

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/kbukum/inflight/stream"
)

func TestFilterStatusCodes_Boundaries(t *testing.T) {
	tests := []struct {
		status int
		pass   bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
	}
	for _, tc := range tests {
		resp := &Response{StatusCode: tc.status}
		got, err := FilterSuccessfulStatusCodes(stream.Just(resp)).Await(context.Background())
		if tc.pass {
			if err != nil || got != resp {
				t.Errorf("%d: expected the response unchanged, got %v, %v", tc.status, got, err)
			}
			continue
		}
		if !IsStatusCode(err) {
			t.Errorf("%d: expected status code error, got %v", tc.status, err)
		}
		if fe, _ := AsError(err); fe.Response != resp {
			t.Errorf("%d: expected the response attached to the error", tc.status)
		}
	}
}

func TestFilterPresets(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		status int
		pass   bool
	}{
		{"redirects accepted", FilterSuccessfulStatusAndRedirectCodes, 302, true},
		{"399 accepted", FilterSuccessfulStatusAndRedirectCodes, 399, true},
		{"400 rejected", FilterSuccessfulStatusAndRedirectCodes, 400, false},
		{"exact match", FilterStatusCode(201), 201, true},
		{"exact mismatch", FilterStatusCode(201), 200, false},
		{"chain", Chain(FilterSuccessfulStatusCodes, nil, FilterStatusCode(200)), 204, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.filter(stream.Just(&Response{StatusCode: tc.status})).Await(context.Background())
			if (err == nil) != tc.pass {
				t.Errorf("expected pass=%v, got %v", tc.pass, err)
			}
		})
	}
}

func TestFilter_ErrorsPassThrough(t *testing.T) {
	upstream := TransportError("net", 1, nil)
	_, err := FilterSuccessfulStatusCodes(stream.Fail[*Response](upstream)).Await(context.Background())
	if err != upstream {
		t.Errorf("expected the upstream error unchanged, got %v", err)
	}
}

func TestResponse_FilterMethods(t *testing.T) {
	r := &Response{StatusCode: 201}
	if got, err := r.FilterSuccessfulStatusCodes(); err != nil || got != r {
		t.Errorf("unexpected %v, %v", got, err)
	}
	if _, err := r.FilterStatusCode(200); !IsStatusCode(err) {
		t.Errorf("expected status code error, got %v", err)
	}
	if _, err := (&Response{StatusCode: 404}).FilterSuccessfulStatusAndRedirectCodes(); !IsStatusCode(err) {
		t.Errorf("expected status code error, got %v", err)
	}
}

func TestFilterStatusCodes_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(100, 599).Draw(t, "lo")
		hi := rapid.IntRange(lo, 599).Draw(t, "hi")
		status := rapid.IntRange(100, 599).Draw(t, "status")

		resp := &Response{StatusCode: status}
		got, err := FilterStatusCodes(lo, hi)(stream.Just(resp)).Await(context.Background())
		inRange := status >= lo && status <= hi
		if inRange && (err != nil || got != resp) {
			t.Fatalf("status %d in [%d,%d] rejected: %v", status, lo, hi, err)
		}
		if !inRange && !IsStatusCode(err) {
			t.Fatalf("status %d outside [%d,%d] passed", status, lo, hi)
		}
	})
}
