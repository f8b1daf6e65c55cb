package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/inflight/errors"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("method", "GET").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("method", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("method", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorAbsoluteURL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"https", "https://api.example.com/users?id=1", false},
		{"http with port", "http://localhost:8080/", false},
		{"empty", "", true},
		{"relative", "/users", true},
		{"ftp scheme", "ftp://example.com/file", true},
		{"no host", "http:///path", true},
		{"unparseable", "http://[::1", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New().AbsoluteURL("url", tc.value)
			if v.HasErrors() != tc.wantErr {
				t.Errorf("AbsoluteURL(%q) errors = %v, wantErr %v", tc.value, v.Errors(), tc.wantErr)
			}
		})
	}
}

func TestValidatorHeaders(t *testing.T) {
	if New().HeaderName("header", "X-Request-ID").HasErrors() {
		t.Error("expected valid header name")
	}
	if !New().HeaderName("header", "Bad Header").HasErrors() {
		t.Error("expected space in header name to be rejected")
	}
	if !New().HeaderName("header", "").HasErrors() {
		t.Error("expected empty header name to be rejected")
	}
	if New().HeaderValue("header", "application/json").HasErrors() {
		t.Error("expected valid header value")
	}
	if !New().HeaderValue("header", "a\r\nInjected: 1").HasErrors() {
		t.Error("expected CRLF in header value to be rejected")
	}
}

func TestValidatorRange(t *testing.T) {
	if New().Range("status", 200, 100, 599).HasErrors() {
		t.Error("expected no error for value in range")
	}
	if !New().Range("status", 99, 100, 599).HasErrors() {
		t.Error("expected error for value below range")
	}
	if !New().Range("status", 600, 100, 599).HasErrors() {
		t.Error("expected error for value above range")
	}
	if !New().Min("subscribers", -1, 0).HasErrors() {
		t.Error("expected error for value below minimum")
	}
}

func TestValidatorOneOf(t *testing.T) {
	methods := []string{"GET", "POST"}
	if New().OneOf("method", "GET", methods).HasErrors() {
		t.Error("expected no error for allowed value")
	}
	if New().OneOf("method", "", methods).HasErrors() {
		t.Error("expected empty value to be skipped")
	}
	v := New().OneOf("method", "BREW", methods)
	if !v.HasErrors() {
		t.Fatal("expected error for disallowed value")
	}
	if !strings.Contains(v.Errors()[0].Message, "GET, POST") {
		t.Errorf("expected allowed values in message, got %q", v.Errors()[0].Message)
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Validate() != nil {
		t.Error("expected nil error for no validation errors")
	}
	if New().Err() != nil {
		t.Error("expected nil plain error for no validation errors")
	}

	v := New().
		Required("method", "").
		AbsoluteURL("url", "/relative").
		Custom(false, "body", "must be empty for GET")

	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", appErr.Details["fields"])
	}
	for _, want := range []string{"method: is required", "url: must use http or https", "body: must be empty for GET"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected %q in message %q", want, appErr.Message)
		}
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

type sampleConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxPerHost  int           `mapstructure:"max_per_host" validate:"gte=0,lte=1000"`
	Format      string        `mapstructure:"format" validate:"required,oneof=json console"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,http_url"`
	UntaggedKey int           `validate:"gt=0"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := sampleConfig{Timeout: time.Second, MaxPerHost: 8, Format: "json", UntaggedKey: 1}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := sampleConfig{Timeout: -time.Second, MaxPerHost: 5000, Format: "xml", BaseURL: "nope"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	for _, want := range []string{
		"timeout: must be 0 or more",
		"max_per_host: must be 1000 or less",
		"format: must be one of: json console",
		"base_url: must be a valid URL",
		"untagged_key: must be greater than 0",
	} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected %q in %q", want, appErr.Message)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"MaxConnsPerHost": "max_conns_per_host",
		"url":             "url",
		"A":               "a",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
