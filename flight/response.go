package flight

import (
	"fmt"
	"mime"
	"net/textproto"
)

// Response is a received response. Treat it as immutable.
type Response struct {
	StatusCode int
	Data       []byte
	Metadata   Metadata
}

// Metadata is transport-level information about a response.
type Metadata struct {
	// URL is the final URL after redirects.
	URL string
	// Header holds the first value of each response header, keyed by canonical name.
	Header        map[string]string
	Proto         string
	ContentLength int64
}

// HeaderValue returns the value of a response header, matching the name
// case-insensitively.
func (r *Response) HeaderValue(name string) string {
	return r.Metadata.Header[textproto.CanonicalMIMEHeaderKey(name)]
}

// MediaType returns the media type and parameters of the Content-Type header.
// Both are empty when the header is missing or malformed.
func (r *Response) MediaType() (string, map[string]string) {
	ct := r.HeaderValue("Content-Type")
	if ct == "" {
		return "", nil
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", nil
	}
	return mediaType, params
}

// FilterStatusCodes returns r if its status is within [lo, hi], and a status
// code error otherwise.
func (r *Response) FilterStatusCodes(lo, hi int) (*Response, error) {
	if r.StatusCode < lo || r.StatusCode > hi {
		return nil, StatusCodeError(r)
	}
	return r, nil
}

// FilterStatusCode returns r if its status equals code.
func (r *Response) FilterStatusCode(code int) (*Response, error) {
	return r.FilterStatusCodes(code, code)
}

// FilterSuccessfulStatusCodes accepts 200-299.
func (r *Response) FilterSuccessfulStatusCodes() (*Response, error) {
	return r.FilterStatusCodes(200, 299)
}

// FilterSuccessfulStatusAndRedirectCodes accepts 200-399.
func (r *Response) FilterSuccessfulStatusAndRedirectCodes() (*Response, error) {
	return r.FilterStatusCodes(200, 399)
}

func (r *Response) String() string {
	return fmt.Sprintf("Status Code: %d, Data Length: %d", r.StatusCode, len(r.Data))
}
