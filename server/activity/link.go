package activity

import (
	"github.com/tkrehbiel/activitystreams/internal/json"
)

// Link is an indirect, qualified reference to a resource identified by href.
// Its properties describe the reference rather than the resource. Href is
// the only required property in the vocabulary.
type Link struct {
	Type      *string  `json:"type,omitempty"`
	Href      string   `json:"href"`
	Rel       []string `json:"rel,omitempty"` // RFC5988 relations, not validated
	MediaType *string  `json:"mediaType,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Hreflang  *string  `json:"hreflang,omitempty"` // BCP47 tag, not validated
	Height    *uint    `json:"height,omitempty"`
	Width     *uint    `json:"width,omitempty"`
	Preview   *Preview `json:"preview,omitempty"`
}

// NewLink returns a typed Link to href with a media type.
func NewLink(href, mediaType string) Link {
	return Link{
		Type:      ptr(LinkType),
		Href:      href,
		MediaType: &mediaType,
	}
}

type linkFields Link

func (l *Link) UnmarshalJSON(data []byte) error {
	var f linkFields
	if err := json.Unmarshal(data, &f); err != nil {
		return &ParseError{Entity: "Link", Err: err}
	}
	if f.Href == "" {
		return missing("Link", HrefProperty)
	}
	*l = Link(f)
	return nil
}

// Clone returns a deep copy of the link.
func (l Link) Clone() Link {
	c := l
	c.Type = clonePtr(l.Type)
	c.Rel = cloneStrings(l.Rel)
	c.MediaType = clonePtr(l.MediaType)
	c.Name = clonePtr(l.Name)
	c.Hreflang = clonePtr(l.Hreflang)
	c.Height = clonePtr(l.Height)
	c.Width = clonePtr(l.Width)
	if l.Preview != nil {
		p := l.Preview.Clone()
		c.Preview = &p
	}
	return c
}

// LinkBuilder assembles a Link. The type defaults to "Link".
type LinkBuilder struct {
	deferred
	link Link
}

func NewLinkBuilder() *LinkBuilder {
	return &LinkBuilder{link: Link{Type: ptr(LinkType)}}
}

func (b *LinkBuilder) Type(t string) *LinkBuilder {
	b.link.Type = &t
	return b
}

func (b *LinkBuilder) Href(href string) *LinkBuilder {
	b.link.Href = href
	return b
}

// Rel appends link relations.
func (b *LinkBuilder) Rel(rel ...string) *LinkBuilder {
	b.link.Rel = append(b.link.Rel, rel...)
	return b
}

func (b *LinkBuilder) MediaType(mediaType string) *LinkBuilder {
	b.link.MediaType = &mediaType
	return b
}

func (b *LinkBuilder) Name(name string) *LinkBuilder {
	b.link.Name = &name
	return b
}

func (b *LinkBuilder) Hreflang(lang string) *LinkBuilder {
	b.link.Hreflang = &lang
	return b
}

func (b *LinkBuilder) Height(height uint) *LinkBuilder {
	b.link.Height = &height
	return b
}

func (b *LinkBuilder) Width(width uint) *LinkBuilder {
	b.link.Width = &width
	return b
}

func (b *LinkBuilder) Preview(preview Preview) *LinkBuilder {
	b.link.Preview = ptr(preview.Clone())
	return b
}

// WithPreview builds the preview from a fresh PreviewBuilder.
func (b *LinkBuilder) WithPreview(fn func(*PreviewBuilder)) *LinkBuilder {
	pb := NewPreviewBuilder()
	fn(pb)
	preview, err := pb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Preview(preview)
}

// Build fails with a BuildError when href was never set.
func (b *LinkBuilder) Build() (Link, error) {
	if b.err != nil {
		return Link{}, b.err
	}
	if b.link.Href == "" {
		return Link{}, &BuildError{Entity: "Link", Field: HrefProperty}
	}
	return b.link.Clone(), nil
}

func (b *LinkBuilder) MustBuild() Link {
	l, err := b.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// Preview identifies an entity that provides a preview of an object.
type Preview struct {
	Type     *string `json:"type,omitempty"`
	Name     *string `json:"name,omitempty"`
	Duration *string `json:"duration,omitempty"`
	URL      *Link   `json:"url,omitempty"`
}

func (p Preview) Clone() Preview {
	c := p
	c.Type = clonePtr(p.Type)
	c.Name = clonePtr(p.Name)
	c.Duration = clonePtr(p.Duration)
	if p.URL != nil {
		u := p.URL.Clone()
		c.URL = &u
	}
	return c
}

// PreviewBuilder assembles a Preview. The type defaults to "Preview".
type PreviewBuilder struct {
	deferred
	preview Preview
}

func NewPreviewBuilder() *PreviewBuilder {
	return &PreviewBuilder{preview: Preview{Type: ptr(PreviewType)}}
}

func (b *PreviewBuilder) Type(t string) *PreviewBuilder {
	b.preview.Type = &t
	return b
}

func (b *PreviewBuilder) Name(name string) *PreviewBuilder {
	b.preview.Name = &name
	return b
}

func (b *PreviewBuilder) Duration(duration string) *PreviewBuilder {
	b.preview.Duration = &duration
	return b
}

func (b *PreviewBuilder) URL(link Link) *PreviewBuilder {
	b.preview.URL = ptr(link.Clone())
	return b
}

// WithURL builds the url from a fresh LinkBuilder.
func (b *PreviewBuilder) WithURL(fn func(*LinkBuilder)) *PreviewBuilder {
	lb := NewLinkBuilder()
	fn(lb)
	link, err := lb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.URL(link)
}

func (b *PreviewBuilder) Build() (Preview, error) {
	if b.err != nil {
		return Preview{}, b.err
	}
	return b.preview.Clone(), nil
}

func (b *PreviewBuilder) MustBuild() Preview {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
