package activity

import (
	"github.com/tkrehbiel/activitystreams/internal/json"
)

// AttributedTo is a value that is either an embedded Object or a Link.
// Exactly one of the two is set.
//
// The wire form carries no discriminator. A JSON object with an href is read
// as a Link; any other JSON object is read as an Object, so Object is always
// tried first and an empty object resolves to Object. Values that are not
// JSON objects match neither variant and fail with a ReferenceError.
type AttributedTo struct {
	Object *Object
	Link   *Link
}

func AttributedToObject(o Object) AttributedTo {
	return AttributedTo{Object: ptr(o.Clone())}
}

func AttributedToLink(l Link) AttributedTo {
	return AttributedTo{Link: ptr(l.Clone())}
}

func (a AttributedTo) IsObject() bool {
	return a.Object != nil
}

func (a AttributedTo) IsLink() bool {
	return a.Object == nil && a.Link != nil
}

func (a AttributedTo) Clone() AttributedTo {
	var c AttributedTo
	if a.Object != nil {
		c.Object = ptr(a.Object.Clone())
	}
	if a.Link != nil {
		c.Link = ptr(a.Link.Clone())
	}
	return c
}

// MarshalJSON writes the Object variant when both are set.
func (a AttributedTo) MarshalJSON() ([]byte, error) {
	switch {
	case a.Object != nil:
		return json.Marshal(a.Object)
	case a.Link != nil:
		return json.Marshal(a.Link)
	}
	return nil, &ReferenceError{Property: "attributedTo", Value: "<empty>"}
}

func (a *AttributedTo) UnmarshalJSON(data []byte) error {
	ref, err := resolveReference("attributedTo", data)
	if err != nil {
		return err
	}
	*a = ref
	return nil
}

func resolveReference(property string, data []byte) (AttributedTo, error) {
	if !json.IsMap(data) {
		return AttributedTo{}, &ReferenceError{Property: property, Value: excerpt(data)}
	}
	var keys json.Object
	if err := json.Unmarshal(data, &keys); err != nil {
		return AttributedTo{}, &ParseError{Entity: property, Err: err}
	}
	if _, ok := keys[HrefProperty]; ok {
		var l Link
		if err := json.Unmarshal(data, &l); err != nil {
			return AttributedTo{}, err
		}
		return AttributedTo{Link: &l}, nil
	}
	var o Object
	if err := json.Unmarshal(data, &o); err != nil {
		return AttributedTo{}, &ParseError{Entity: property, Err: err}
	}
	return AttributedTo{Object: &o}, nil
}
