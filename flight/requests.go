package flight

import (
	"image"

	"github.com/kbukum/inflight/stream"
)

// CallOption configures one of the Request* helpers.
type CallOption func(*callOptions)

type callOptions struct {
	filter Filter
	decode []DecodeOption
}

// WithStatusFilter applies f to the response before decoding.
func WithStatusFilter(f Filter) CallOption {
	return func(o *callOptions) { o.filter = f }
}

// WithDecodeOptions passes opts to the JSON decoders.
func WithDecodeOptions(opts ...DecodeOption) CallOption {
	return func(o *callOptions) { o.decode = append(o.decode, opts...) }
}

func (m *Multiplexer[T]) filtered(target T, opts []CallOption) (*stream.Stream[*Response], callOptions) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	s := m.Request(target)
	if o.filter != nil {
		s = o.filter(s)
	}
	return s, o
}

// RequestString requests target and decodes the payload as text.
func (m *Multiplexer[T]) RequestString(target T, opts ...CallOption) *stream.Stream[string] {
	s, _ := m.filtered(target, opts)
	return MapString(s)
}

// RequestImage requests target and decodes the payload as an image.
func (m *Multiplexer[T]) RequestImage(target T, opts ...CallOption) *stream.Stream[image.Image] {
	s, _ := m.filtered(target, opts)
	return MapImage(s)
}

// RequestJSON requests target and decodes the payload as generic JSON.
func (m *Multiplexer[T]) RequestJSON(target T, opts ...CallOption) *stream.Stream[any] {
	s, o := m.filtered(target, opts)
	return MapJSON(s, o.decode...)
}

// RequestJSONArray requests target and decodes the payload as a JSON array.
func (m *Multiplexer[T]) RequestJSONArray(target T, opts ...CallOption) *stream.Stream[[]any] {
	s, o := m.filtered(target, opts)
	return MapJSONArray(s, o.decode...)
}

// RequestJSONObject requests target and decodes the payload as a JSON object.
func (m *Multiplexer[T]) RequestJSONObject(target T, opts ...CallOption) *stream.Stream[map[string]any] {
	s, o := m.filtered(target, opts)
	return MapJSONObject(s, o.decode...)
}

// RequestDecode requests target and unmarshals the payload into a V.
//
//	users := flight.RequestDecode[[]User](mux, flight.Get(url),
//		flight.WithStatusFilter(flight.FilterSuccessfulStatusCodes))
func RequestDecode[V, T any](m *Multiplexer[T], target T, opts ...CallOption) *stream.Stream[V] {
	s, o := m.filtered(target, opts)
	return Decode[V](s, o.decode...)
}
