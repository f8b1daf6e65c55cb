package flight

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/kbukum/inflight/validation"
)

// RequestKey is the structural identity of an Endpoint. Equal endpoints
// have equal keys.
type RequestKey string

// Endpoint describes one network call. Treat it as immutable: NewEndpoint
// and the With methods copy their inputs.
type Endpoint struct {
	Method string
	URL    string
	Header map[string]string
	Query  map[string]string
	Body   []byte
}

// EndpointOption configures an Endpoint built by NewEndpoint.
type EndpointOption func(*Endpoint)

// WithHeader sets a request header. Names are canonicalized.
func WithHeader(name, value string) EndpointOption {
	return func(e *Endpoint) {
		e.Header[textproto.CanonicalMIMEHeaderKey(name)] = value
	}
}

// WithQuery sets a query parameter appended to the URL by the transport.
func WithQuery(name, value string) EndpointOption {
	return func(e *Endpoint) {
		e.Query[name] = value
	}
}

// WithBody sets the request body.
func WithBody(body []byte) EndpointOption {
	return func(e *Endpoint) {
		e.Body = slices.Clone(body)
	}
}

// NewEndpoint creates an Endpoint. The method is upper-cased.
func NewEndpoint(method, rawURL string, opts ...EndpointOption) Endpoint {
	e := Endpoint{
		Method: strings.ToUpper(method),
		URL:    rawURL,
		Header: make(map[string]string),
		Query:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Get is shorthand for NewEndpoint(http.MethodGet, rawURL, opts...).
func Get(rawURL string, opts ...EndpointOption) Endpoint {
	return NewEndpoint(http.MethodGet, rawURL, opts...)
}

// With returns a copy of e with opts applied.
func (e Endpoint) With(opts ...EndpointOption) Endpoint {
	c := Endpoint{
		Method: e.Method,
		URL:    e.URL,
		Header: make(map[string]string, len(e.Header)),
		Query:  maps.Clone(e.Query),
		Body:   slices.Clone(e.Body),
	}
	for k, v := range e.Header {
		c.Header[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	if c.Query == nil {
		c.Query = make(map[string]string)
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

var methods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// Validate checks the method, URL and header names.
func (e Endpoint) Validate() error {
	v := validation.New().
		Required("method", e.Method).
		OneOf("method", e.Method, methods).
		AbsoluteURL("url", e.URL)
	for _, name := range slices.Sorted(maps.Keys(e.Header)) {
		v.HeaderName("header", name).HeaderValue("header."+name, e.Header[name])
	}
	return v.Err()
}

// Key derives the endpoint's RequestKey from its method, URL, query,
// headers and body. Header names are compared case-insensitively. Query
// parameters carried in the URL are folded into Query first, with Query
// winning on conflict, so "/a?q=1" and "/a" plus WithQuery("q", "1")
// share a key.
func (e Endpoint) Key() RequestKey {
	h := sha256.New()
	writeField := func(s string) {
		fmt.Fprintf(h, "%d:%s", len(s), s)
	}

	base, query := e.splitQuery()
	writeField(strings.ToUpper(e.Method))
	writeField(base)

	writeField("query")
	for _, k := range slices.Sorted(maps.Keys(query)) {
		writeField(k)
		writeField(strconv.Itoa(len(query[k])))
		for _, v := range query[k] {
			writeField(v)
		}
	}

	headers := make(map[string]string, len(e.Header))
	for k, v := range e.Header {
		headers[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	writeField("header")
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		writeField(k)
		writeField(headers[k])
	}

	if len(e.Body) > 0 {
		sum := sha256.Sum256(e.Body)
		writeField("body")
		writeField(hex.EncodeToString(sum[:]))
	}

	return RequestKey(fmt.Sprintf("%s %s#%s", strings.ToUpper(e.Method), base, hex.EncodeToString(h.Sum(nil)[:12])))
}

// splitQuery returns the URL without its query string and the effective
// query sent on the wire. An unparsable URL is kept verbatim.
func (e Endpoint) splitQuery() (string, url.Values) {
	query := make(url.Values, len(e.Query))
	base := e.URL
	if u, err := url.Parse(e.URL); err == nil && (u.RawQuery != "" || u.ForceQuery) {
		query = u.Query()
		u.RawQuery = ""
		u.ForceQuery = false
		base = u.String()
	}
	for k, v := range e.Query {
		query.Set(k, v)
	}
	return base, query
}

// String returns "METHOD URL".
func (e Endpoint) String() string {
	return e.Method + " " + e.URL
}
