// Package validation checks configuration structs and request endpoints.
//
// Struct tag validation (backed by go-playground/validator) covers the
// configuration sections; the programmatic Validator covers values built at
// call time, such as an endpoint's method, URL and header names.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    MaxConnsPerHost int `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.OneOf("method", method, []string{"GET", "POST"}).AbsoluteURL("url", raw)
//	err := v.Validate()
package validation
