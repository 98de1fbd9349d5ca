package activity

import (
	"slices"
	"time"

	"github.com/tkrehbiel/activitystreams/internal/json"
)

// Object is the primary base type for the ActivityStreams vocabulary. Every
// property is optional, including id and type. Derived types carry an Object
// in their Base field and share its properties on the wire.
type Object struct {
	Type         *string        `json:"type,omitempty"`
	ID           *string        `json:"id,omitempty"`
	Name         *string        `json:"name,omitempty"`
	URL          *string        `json:"url,omitempty"`
	Published    *Timestamp     `json:"published,omitempty"`
	Image        *Link          `json:"image,omitempty"`
	AttributedTo []AttributedTo `json:"attributedTo,omitempty"`
	Audience     *Object        `json:"audience,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Summary      *string        `json:"summary,omitempty"`
	Duration     *string        `json:"duration,omitempty"`
	Preview      *Preview       `json:"preview,omitempty"`
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	c := o
	c.Type = clonePtr(o.Type)
	c.ID = clonePtr(o.ID)
	c.Name = clonePtr(o.Name)
	c.URL = clonePtr(o.URL)
	c.Published = clonePtr(o.Published)
	c.Content = clonePtr(o.Content)
	c.Summary = clonePtr(o.Summary)
	c.Duration = clonePtr(o.Duration)
	if o.Image != nil {
		img := o.Image.Clone()
		c.Image = &img
	}
	if o.AttributedTo != nil {
		c.AttributedTo = make([]AttributedTo, len(o.AttributedTo))
		for i, a := range o.AttributedTo {
			c.AttributedTo[i] = a.Clone()
		}
	}
	if o.Audience != nil {
		aud := o.Audience.Clone()
		c.Audience = &aud
	}
	if o.Preview != nil {
		p := o.Preview.Clone()
		c.Preview = &p
	}
	return c
}

// Timestamp is a point in time rendered as RFC3339 in UTC, e.g.
// "2015-02-10T15:04:55Z".
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ParseError{Entity: "Timestamp", Err: err}
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return &ParseError{Entity: "Timestamp", Err: err}
	}
	t.Time = parsed.UTC()
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// deferred remembers the first failure raised while composing a builder so
// that Build can report it.
type deferred struct {
	err error
}

func (d *deferred) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// ObjectBuilder assembles an Object. All fields start absent.
type ObjectBuilder struct {
	deferred
	object Object
}

func NewObjectBuilder() *ObjectBuilder {
	return &ObjectBuilder{}
}

// NewObjectBuilderOfType starts an object with its type already set.
func NewObjectBuilderOfType(objectType string) *ObjectBuilder {
	return NewObjectBuilder().Type(objectType)
}

// NewNoteBuilder starts a Note with a name and content.
func NewNoteBuilder(name, content string) *ObjectBuilder {
	return NewObjectBuilderOfType(NoteType).Name(name).Content(content)
}

func (b *ObjectBuilder) Type(t string) *ObjectBuilder {
	b.object.Type = &t
	return b
}

func (b *ObjectBuilder) ID(id string) *ObjectBuilder {
	b.object.ID = &id
	return b
}

func (b *ObjectBuilder) Name(name string) *ObjectBuilder {
	b.object.Name = &name
	return b
}

func (b *ObjectBuilder) URL(url string) *ObjectBuilder {
	b.object.URL = &url
	return b
}

func (b *ObjectBuilder) Published(t time.Time) *ObjectBuilder {
	b.object.Published = ptr(NewTimestamp(t))
	return b
}

func (b *ObjectBuilder) Image(link Link) *ObjectBuilder {
	b.object.Image = ptr(link.Clone())
	return b
}

// WithImage builds the image from a fresh LinkBuilder.
func (b *ObjectBuilder) WithImage(fn func(*LinkBuilder)) *ObjectBuilder {
	lb := NewLinkBuilder()
	fn(lb)
	link, err := lb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Image(link)
}

// AttributedTo appends attributions in order.
func (b *ObjectBuilder) AttributedTo(refs ...AttributedTo) *ObjectBuilder {
	for _, r := range refs {
		b.object.AttributedTo = append(b.object.AttributedTo, r.Clone())
	}
	return b
}

func (b *ObjectBuilder) Audience(audience Object) *ObjectBuilder {
	b.object.Audience = ptr(audience.Clone())
	return b
}

// WithAudience builds the audience from a fresh ObjectBuilder.
func (b *ObjectBuilder) WithAudience(fn func(*ObjectBuilder)) *ObjectBuilder {
	ob := NewObjectBuilder()
	fn(ob)
	audience, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Audience(audience)
}

func (b *ObjectBuilder) Content(content string) *ObjectBuilder {
	b.object.Content = &content
	return b
}

func (b *ObjectBuilder) Summary(summary string) *ObjectBuilder {
	b.object.Summary = &summary
	return b
}

// Duration is an xsd:duration such as "PT2H30M". It is not validated.
func (b *ObjectBuilder) Duration(duration string) *ObjectBuilder {
	b.object.Duration = &duration
	return b
}

func (b *ObjectBuilder) Preview(preview Preview) *ObjectBuilder {
	b.object.Preview = ptr(preview.Clone())
	return b
}

// WithPreview builds the preview from a fresh PreviewBuilder.
func (b *ObjectBuilder) WithPreview(fn func(*PreviewBuilder)) *ObjectBuilder {
	pb := NewPreviewBuilder()
	fn(pb)
	preview, err := pb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Preview(preview)
}

// Build returns the object. It fails only if a nested builder failed.
func (b *ObjectBuilder) Build() (Object, error) {
	if b.err != nil {
		return Object{}, b.err
	}
	return b.object.Clone(), nil
}

// MustBuild is Build for objects assembled from literals. It panics on error.
func (b *ObjectBuilder) MustBuild() Object {
	o, err := b.Build()
	if err != nil {
		panic(err)
	}
	return o
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}
