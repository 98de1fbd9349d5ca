package activity

import (
	"bytes"
	"errors"

	"github.com/tkrehbiel/activitystreams/internal/json"
)

// Document is the outermost wire object: one @context key followed by the
// payload's own keys in the same JSON object.
type Document[T any] struct {
	Context Context
	Payload T
}

func NewDocument[T any](ctx Context, payload T) Document[T] {
	return Document[T]{Context: ctx, Payload: payload}
}

type contextHeader struct {
	Context Context `json:"@context"`
}

func (d Document[T]) MarshalJSON() ([]byte, error) {
	return marshalFlat(contextHeader{Context: d.Context}, d.Payload)
}

func (d *Document[T]) UnmarshalJSON(data []byte) error {
	var header struct {
		Context json.RawMessage `json:"@context"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return &ParseError{Entity: "Document", Err: err}
	}
	if header.Context == nil {
		return missing("Document", ContextProperty)
	}
	ctx, err := NormalizeContext(header.Context)
	if err != nil {
		return err
	}
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	d.Context = ctx
	d.Payload = payload
	return nil
}

// Serialize renders the document as compact JSON.
func (d Document[T]) Serialize() ([]byte, error) {
	return json.Marshal(d)
}

// SerializePretty renders the document indented by two spaces.
func (d Document[T]) SerializePretty() ([]byte, error) {
	b, err := d.Serialize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseDocument inflates a document and its payload from wire JSON. Every
// failure is reported as a *ParseError.
func ParseDocument[T any](data []byte) (Document[T], error) {
	var d Document[T]
	if err := json.Unmarshal(data, &d); err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return Document[T]{}, err
		}
		return Document[T]{}, &ParseError{Entity: "Document", Err: err}
	}
	return d, nil
}
