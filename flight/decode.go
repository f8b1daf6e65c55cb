package flight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	// image formats accepted by MapImage
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html/charset"

	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/stream"
)

// DecodeOption configures the JSON decoders.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	allowEmpty bool
}

// AllowEmptyData makes an empty payload decode to nil instead of failing.
func AllowEmptyData() DecodeOption {
	return func(o *decodeOptions) { o.allowEmpty = true }
}

func applyDecodeOptions(opts []DecodeOption) decodeOptions {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MapString decodes the payload as text. A charset parameter on the
// Content-Type header selects the source encoding; otherwise the payload
// must already be UTF-8.
func MapString(s *stream.Stream[*Response]) *stream.Stream[string] {
	return stream.TryMap(s, decodeString)
}

func decodeString(r *Response) (string, error) {
	data := r.Data
	_, params := r.MediaType()
	if label := params["charset"]; label != "" {
		enc, name := charset.Lookup(label)
		if enc == nil {
			return "", mappingError(errors.ErrCodeStringMapping, fmt.Sprintf("unknown charset %q", label), r, nil)
		}
		if name != "utf-8" {
			decoded, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				return "", mappingError(errors.ErrCodeStringMapping, "payload does not match charset "+name, r, err)
			}
			data = decoded
		}
	}
	if !utf8.Valid(data) {
		return "", mappingError(errors.ErrCodeStringMapping, "payload is not valid UTF-8", r, nil)
	}
	return string(data), nil
}

// MapStringAtKeyPath decodes the payload as a JSON object and returns the
// string found at the dot-separated key path, e.g. "data.user.name".
func MapStringAtKeyPath(s *stream.Stream[*Response], path string) *stream.Stream[string] {
	return stream.TryMap(s, func(r *Response) (string, error) {
		v, err := decodeJSON(r, decodeOptions{})
		if err != nil {
			return "", err
		}
		for _, part := range strings.Split(path, ".") {
			obj, ok := v.(map[string]any)
			if !ok {
				return "", &Error{Code: errors.ErrCodeStringMapping, Message: fmt.Sprintf("no object at %q", part), StatusCode: r.StatusCode, Response: r, Value: v}
			}
			if v, ok = obj[part]; !ok {
				return "", &Error{Code: errors.ErrCodeStringMapping, Message: fmt.Sprintf("key %q not found", part), StatusCode: r.StatusCode, Response: r, Value: obj}
			}
		}
		str, ok := v.(string)
		if !ok {
			return "", &Error{Code: errors.ErrCodeStringMapping, Message: fmt.Sprintf("value at %q is not a string", path), StatusCode: r.StatusCode, Response: r, Value: v}
		}
		return str, nil
	})
}

// MapImage decodes the payload as a PNG, JPEG, GIF, WebP or BMP image.
func MapImage(s *stream.Stream[*Response]) *stream.Stream[image.Image] {
	return stream.TryMap(s, decodeImage)
}

func decodeImage(r *Response) (image.Image, error) {
	if len(r.Data) == 0 {
		return nil, mappingError(errors.ErrCodeImageMapping, "payload is empty", r, nil)
	}
	img, _, err := image.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return nil, mappingError(errors.ErrCodeImageMapping, "payload is not a supported image", r, err)
	}
	return img, nil
}

// MapJSON decodes the payload into a generic value: map[string]any,
// []any, string, float64, bool or nil.
func MapJSON(s *stream.Stream[*Response], opts ...DecodeOption) *stream.Stream[any] {
	o := applyDecodeOptions(opts)
	return stream.TryMap(s, func(r *Response) (any, error) {
		return decodeJSON(r, o)
	})
}

func decodeJSON(r *Response, o decodeOptions) (any, error) {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		if o.allowEmpty {
			return nil, nil
		}
		return nil, mappingError(errors.ErrCodeJSONMapping, "payload is empty", r, nil)
	}
	var v any
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return nil, mappingError(errors.ErrCodeJSONMapping, "payload is not valid JSON", r, err)
	}
	return v, nil
}

// AsJSONArray requires the decoded value to be a JSON array.
func AsJSONArray(s *stream.Stream[any]) *stream.Stream[[]any] {
	return stream.TryMap(s, func(v any) ([]any, error) {
		return asShape[[]any](v, "array", nil)
	})
}

// AsJSONObject requires the decoded value to be a JSON object.
func AsJSONObject(s *stream.Stream[any]) *stream.Stream[map[string]any] {
	return stream.TryMap(s, func(v any) (map[string]any, error) {
		return asShape[map[string]any](v, "object", nil)
	})
}

// MapJSONArray decodes the payload as a JSON array.
func MapJSONArray(s *stream.Stream[*Response], opts ...DecodeOption) *stream.Stream[[]any] {
	o := applyDecodeOptions(opts)
	return stream.TryMap(s, func(r *Response) ([]any, error) {
		v, err := decodeJSON(r, o)
		if err != nil || (v == nil && o.allowEmpty) {
			return nil, err
		}
		return asShape[[]any](v, "array", r)
	})
}

// MapJSONObject decodes the payload as a JSON object.
func MapJSONObject(s *stream.Stream[*Response], opts ...DecodeOption) *stream.Stream[map[string]any] {
	o := applyDecodeOptions(opts)
	return stream.TryMap(s, func(r *Response) (map[string]any, error) {
		v, err := decodeJSON(r, o)
		if err != nil || (v == nil && o.allowEmpty) {
			return nil, err
		}
		return asShape[map[string]any](v, "object", r)
	})
}

func asShape[V any](v any, shape string, r *Response) (V, error) {
	if typed, ok := v.(V); ok {
		return typed, nil
	}
	var zero V
	e := mappingError(errors.ErrCodeJSONMapping, "JSON value is not an "+shape, r, nil)
	e.Value = v
	return zero, e
}

// Decode unmarshals the payload into a V.
func Decode[V any](s *stream.Stream[*Response], opts ...DecodeOption) *stream.Stream[V] {
	o := applyDecodeOptions(opts)
	return stream.TryMap(s, func(r *Response) (V, error) {
		var v V
		if len(bytes.TrimSpace(r.Data)) == 0 {
			if o.allowEmpty {
				return v, nil
			}
			return v, mappingError(errors.ErrCodeObjectMapping, "payload is empty", r, nil)
		}
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return v, mappingError(errors.ErrCodeObjectMapping, fmt.Sprintf("payload does not decode into %T", v), r, err)
		}
		return v, nil
	})
}
