// Package json wraps the JSON codec used throughout the module so the
// backing implementation is chosen in one place.
package json

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"
)

type RawMessage = gojson.RawMessage
type Object map[string]RawMessage
type Decoder = gojson.Decoder
type Delim = gojson.Delim

func Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}

func NewDecoder(r io.Reader) *Decoder {
	return gojson.NewDecoder(r)
}

func Indent(dst *bytes.Buffer, src []byte, prefix string, indent string) error {
	return gojson.Indent(dst, src, prefix, indent)
}

func Compact(dst *bytes.Buffer, src []byte) error {
	return gojson.Compact(dst, src)
}

func Valid(data []byte) bool {
	return gojson.Valid(data)
}

var (
	beginObject = byte('{')
	beginString = byte('"')
	null        = []byte(`null`)
)

func IsNull(in []byte) bool {
	return bytes.Equal(bytes.TrimSpace(in), null)
}

func IsMap(in []byte) bool {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return false
	}
	return in[0] == beginObject
}

func IsString(in []byte) bool {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return false
	}
	return in[0] == beginString
}
