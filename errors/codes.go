package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Wire errors
const (
	// ErrCodeTransport indicates the network call itself failed.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeCancelled indicates the network call was cancelled before it completed.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Response errors
const (
	// ErrCodeStatusCode indicates a response arrived with a status outside the accepted range.
	ErrCodeStatusCode ErrorCode = "STATUS_CODE"
	// ErrCodeImageMapping indicates the payload could not be decoded as an image.
	ErrCodeImageMapping ErrorCode = "IMAGE_MAPPING"
	// ErrCodeJSONMapping indicates the payload was not JSON or had the wrong shape.
	ErrCodeJSONMapping ErrorCode = "JSON_MAPPING"
	// ErrCodeStringMapping indicates the payload could not be decoded as text.
	ErrCodeStringMapping ErrorCode = "STRING_MAPPING"
	// ErrCodeObjectMapping indicates the payload could not be decoded into a typed value.
	ErrCodeObjectMapping ErrorCode = "OBJECT_MAPPING"
)

// Input errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrCodeInvalidConfig indicates a configuration section failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// ErrCodeInternal indicates a failure that no other code describes.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// Only wire failures are worth another attempt; a response that arrived and
// was rejected or failed to decode will fail the same way again.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport: true,
	ErrCodeCancelled: false,
	ErrCodeInternal:  false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsDecodeCode reports whether code is one of the payload mapping codes.
func IsDecodeCode(code ErrorCode) bool {
	switch code {
	case ErrCodeImageMapping, ErrCodeJSONMapping, ErrCodeStringMapping, ErrCodeObjectMapping:
		return true
	default:
		return false
	}
}
