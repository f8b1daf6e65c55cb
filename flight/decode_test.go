package flight

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kbukum/inflight/stream"
)

func respond(data []byte, contentType string) *stream.Stream[*Response] {
	r := &Response{StatusCode: 200, Data: data}
	if contentType != "" {
		r.Metadata.Header = map[string]string{"Content-Type": contentType}
	}
	return stream.Just(r)
}

func TestMapString(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        string
		wantErr     bool
	}{
		{"utf-8 without charset", []byte("héllo"), "text/plain", "héllo", false},
		{"explicit utf-8", []byte("héllo"), "text/plain; charset=UTF-8", "héllo", false},
		{"latin-1", []byte{'h', 0xE9, 'l', 'l', 'o'}, "text/plain; charset=iso-8859-1", "héllo", false},
		{"invalid utf-8", []byte{0xff, 0xfe}, "", "", true},
		{"unknown charset", []byte("x"), "text/plain; charset=klingon", "", true},
		{"empty", nil, "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MapString(respond(tc.data, tc.contentType)).Await(context.Background())
			if tc.wantErr {
				if !IsStringMapping(err) {
					t.Fatalf("expected string mapping error, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}

func TestMapStringAtKeyPath(t *testing.T) {
	body := []byte(`{"data":{"user":{"name":"ada","age":36}}}`)
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"data.user.name", "ada", false},
		{"data.user.age", "", true},
		{"data.missing", "", true},
		{"data.user.name.first", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := MapStringAtKeyPath(respond(body, ""), tc.path).Await(context.Background())
			if tc.wantErr {
				if !IsStringMapping(err) {
					t.Fatalf("expected string mapping error, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %q, %v", got, err)
			}
		})
	}

	if _, err := MapStringAtKeyPath(respond([]byte("nope"), ""), "a").Await(context.Background()); !IsJSONMapping(err) {
		t.Errorf("expected JSON mapping error for invalid payload, got %v", err)
	}
}

func TestMapImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	got, err := MapImage(respond(buf.Bytes(), "image/png")).Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := got.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Errorf("unexpected bounds %v", b)
	}

	for name, data := range map[string][]byte{"empty": nil, "garbage": []byte("not an image")} {
		t.Run(name, func(t *testing.T) {
			if _, err := MapImage(respond(data, "")).Await(context.Background()); !IsImageMapping(err) {
				t.Errorf("expected image mapping error, got %v", err)
			}
		})
	}
}

func TestMapJSON(t *testing.T) {
	got, err := MapJSON(respond([]byte(`{"a":[1,"x",true,null]}`), "")).Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	arr := got.(map[string]any)["a"].([]any)
	if arr[0] != 1.0 || arr[1] != "x" || arr[2] != true || arr[3] != nil {
		t.Errorf("unexpected decoded value %v", arr)
	}
}

func TestMapJSON_DecodeFailure(t *testing.T) {
	fired := false
	var gotErr error
	MapJSON(respond([]byte("{not json"), "")).Subscribe(stream.Observer[any]{
		OnValue: func(any) { fired = true },
		OnError: func(err error) { gotErr = err },
	})
	if fired {
		t.Error("OnValue must not fire for an undecodable payload")
	}
	if !IsJSONMapping(gotErr) {
		t.Errorf("expected JSON mapping error, got %v", gotErr)
	}
	if fe, _ := AsError(gotErr); fe.Response == nil || fe.Err == nil {
		t.Error("expected the response and the decoder error to be attached")
	}
}

func TestMapJSON_EmptyData(t *testing.T) {
	if _, err := MapJSON(respond(nil, "")).Await(context.Background()); !IsJSONMapping(err) {
		t.Errorf("expected empty payload to fail by default, got %v", err)
	}
	v, err := MapJSON(respond([]byte("  "), ""), AllowEmptyData()).Await(context.Background())
	if err != nil || v != nil {
		t.Errorf("expected nil for allowed empty payload, got %v, %v", v, err)
	}
	arr, err := MapJSONArray(respond(nil, ""), AllowEmptyData()).Await(context.Background())
	if err != nil || arr != nil {
		t.Errorf("expected nil array for allowed empty payload, got %v, %v", arr, err)
	}
}

func TestJSONShapes(t *testing.T) {
	ctx := context.Background()

	arr, err := AsJSONArray(MapJSON(respond([]byte("[1,2,3]"), ""))).Await(ctx)
	if err != nil || len(arr) != 3 {
		t.Errorf("AsJSONArray: %v, %v", arr, err)
	}
	obj, err := MapJSONObject(respond([]byte(`{"k":"v"}`), "")).Await(ctx)
	if err != nil || obj["k"] != "v" {
		t.Errorf("MapJSONObject: %v, %v", obj, err)
	}

	_, err = AsJSONObject(MapJSON(respond([]byte("[1]"), ""))).Await(ctx)
	fe, ok := AsError(err)
	if !ok || !IsJSONMapping(err) {
		t.Fatalf("expected JSON mapping error, got %v", err)
	}
	if v, ok := fe.Value.([]any); !ok || len(v) != 1 {
		t.Errorf("expected the decoded value on the error, got %#v", fe.Value)
	}

	_, err = MapJSONArray(respond([]byte(`"str"`), "")).Await(ctx)
	if fe, _ := AsError(err); fe == nil || fe.Value != "str" || fe.Response == nil {
		t.Errorf("expected shape error carrying value and response, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	ctx := context.Background()
	got, err := Decode[user](respond([]byte(`{"id":7,"name":"grace"}`), "")).Await(ctx)
	if err != nil || got != (user{ID: 7, Name: "grace"}) {
		t.Errorf("got %+v, %v", got, err)
	}
	if _, err := Decode[user](respond([]byte(`{"id":"seven"}`), "")).Await(ctx); !IsObjectMapping(err) {
		t.Errorf("expected object mapping error, got %v", err)
	}
	if _, err := Decode[user](respond(nil, "")).Await(ctx); !IsObjectMapping(err) {
		t.Errorf("expected empty payload to fail, got %v", err)
	}
	if u, err := Decode[user](respond(nil, ""), AllowEmptyData()).Await(ctx); err != nil || u != (user{}) {
		t.Errorf("expected zero value, got %+v, %v", u, err)
	}
}
