package flight

import "github.com/kbukum/inflight/stream"

// Filter transforms a response stream, typically failing it when the
// response is not acceptable.
type Filter func(*stream.Stream[*Response]) *stream.Stream[*Response]

// FilterStatusCodes passes responses whose status is within [lo, hi] and
// fails the stream with a status code error otherwise.
func FilterStatusCodes(lo, hi int) Filter {
	return func(s *stream.Stream[*Response]) *stream.Stream[*Response] {
		return stream.TryMap(s, func(r *Response) (*Response, error) {
			return r.FilterStatusCodes(lo, hi)
		})
	}
}

// FilterStatusCode passes only responses with the given status.
func FilterStatusCode(code int) Filter {
	return FilterStatusCodes(code, code)
}

var (
	// FilterSuccessfulStatusCodes passes 200-299.
	FilterSuccessfulStatusCodes = FilterStatusCodes(200, 299)
	// FilterSuccessfulStatusAndRedirectCodes passes 200-399.
	FilterSuccessfulStatusAndRedirectCodes = FilterStatusCodes(200, 399)
)

// Chain applies filters in order.
func Chain(filters ...Filter) Filter {
	return func(s *stream.Stream[*Response]) *stream.Stream[*Response] {
		for _, f := range filters {
			if f != nil {
				s = f(s)
			}
		}
		return s
	}
}
