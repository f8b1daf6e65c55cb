// Package errors defines the error codes shared by every inflight package
// and AppError, the structured error returned by configuration and input
// validation.
//
// Codes are grouped by where the failure happened: on the wire (TRANSPORT,
// CANCELLED), after the response arrived (STATUS_CODE and the *_MAPPING
// decode codes), or before any call was made (INVALID_INPUT, MISSING_FIELD,
// INVALID_FORMAT, INVALID_CONFIG).
package errors
