package activity

import (
	"bytes"
	"fmt"

	"github.com/tkrehbiel/activitystreams/internal/json"
)

// Derived entities hold their base entity in a Base field and merge both
// field sets into one JSON object on the wire. Parts are encoded in order:
// keys keep the position of their first appearance, and when a later part
// emits a key that an earlier part already emitted, the later value wins.

// member is one encoded "key":value pair of a JSON object.
type member struct {
	key string
	raw []byte
}

func marshalFlat(parts ...any) ([]byte, error) {
	var merged []member
	index := make(map[string]int)
	for _, part := range parts {
		b, err := json.Marshal(part)
		if err != nil {
			return nil, err
		}
		members, err := splitObject(b)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if i, ok := index[m.key]; ok {
				merged[i] = m
				continue
			}
			index[m.key] = len(merged)
			merged = append(merged, m)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range merged {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(m.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unmarshalFlat decodes the same flat object into every part, base first.
// Each part picks the keys it knows and ignores the rest.
func unmarshalFlat(data []byte, parts ...any) error {
	for _, part := range parts {
		if err := json.Unmarshal(data, part); err != nil {
			return err
		}
	}
	return nil
}

// splitObject breaks an encoded JSON object into its top level members,
// in the order they appear.
func splitObject(b []byte) ([]member, error) {
	b = bytes.TrimSpace(b)
	if json.IsNull(b) {
		return nil, nil
	}
	if !json.IsMap(b) {
		return nil, fmt.Errorf("flattening %s: not a JSON object", excerpt(b))
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("flattening %s: %w", excerpt(b), err)
	}
	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("flattening %s: %w", excerpt(b), err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("flattening %s: missing key", excerpt(b))
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("flattening member %q: %w", key, err)
		}
		m, err := newMember(key, value)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, fmt.Errorf("flattening %s: unterminated object", excerpt(b))
	}
	return members, nil
}

func newMember(key string, value json.RawMessage) (member, error) {
	k, err := json.Marshal(key)
	if err != nil {
		return member{}, fmt.Errorf("flattening member %q: %w", key, err)
	}
	raw := make([]byte, 0, len(k)+1+len(value))
	raw = append(raw, k...)
	raw = append(raw, ':')
	raw = append(raw, bytes.TrimSpace(value)...)
	return member{key: key, raw: raw}, nil
}
