package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/tkrehbiel/activitystreams/server/activity"
)

// ErrNoID is returned when a document without an id is stored.
var ErrNoID = errors.New("document has no id")

// Record is one stored document: its id, its publication time and its
// serialized JSON.
type Record struct {
	ID        string
	Published time.Time
	JSON      []byte
}

// NewRecord serializes a document for storage. The id and published time
// are read from the top level of the serialized payload, which is where a
// flattened Object base puts them for every entity type.
func NewRecord[T any](doc activity.Document[T]) (Record, error) {
	b, err := doc.Serialize()
	if err != nil {
		return Record{}, fmt.Errorf("serializing record: %w", err)
	}
	head, err := activity.ParseDocument[activity.Object](b)
	if err != nil {
		return Record{}, fmt.Errorf("reading record header: %w", err)
	}
	if head.Payload.ID == nil || *head.Payload.ID == "" {
		return Record{}, ErrNoID
	}
	r := Record{ID: *head.Payload.ID, JSON: b}
	if head.Payload.Published != nil {
		r.Published = head.Payload.Published.Time
	}
	return r, nil
}

// Decode inflates a stored record back into a document.
func Decode[T any](r Record) (activity.Document[T], error) {
	return activity.ParseDocument[T](r.JSON)
}
