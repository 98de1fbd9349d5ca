package activity

import (
	"github.com/tkrehbiel/activitystreams/internal/json"
)

// Context is the JSON-LD processing context of a document: the vocabulary
// namespace and an optional default language.
//
// On the wire a context may be a structured object or a bare string. Reading
// accepts both, but any value that is not an object collapses to the default
// context and its content is discarded. Writing always produces the object
// form, so a document parsed from a string context comes back out with an
// object context. The shape changes, the meaning does not.
type Context struct {
	namespace string
	language  *string
}

// DefaultContext is the ActivityStreams namespace with no language.
func DefaultContext() Context {
	return Context{namespace: Namespace}
}

// Namespace returns the vocabulary IRI.
func (c Context) Namespace() string {
	if c.namespace == "" {
		return Namespace
	}
	return c.namespace
}

// Language returns the default language tag, if any.
func (c Context) Language() (string, bool) {
	if c.language == nil {
		return "", false
	}
	return *c.language, true
}

type contextObject struct {
	Namespace *string `json:"@vocab,omitempty"`
	Language  *string `json:"@language,omitempty"`
}

func (c Context) MarshalJSON() ([]byte, error) {
	ns := c.Namespace()
	return json.Marshal(contextObject{Namespace: &ns, Language: c.language})
}

func (c *Context) UnmarshalJSON(data []byte) error {
	ctx, err := NormalizeContext(data)
	if err != nil {
		return err
	}
	*c = ctx
	return nil
}

// NormalizeContext turns a raw @context value into a Context. Objects are
// read for @vocab and @language; every other JSON value yields the default.
func NormalizeContext(raw json.RawMessage) (Context, error) {
	if !json.IsMap(raw) {
		return DefaultContext(), nil
	}
	var obj contextObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Context{}, &ParseError{Entity: "Context", Err: err}
	}
	ctx := DefaultContext()
	if obj.Namespace != nil {
		ctx.namespace = *obj.Namespace
	}
	ctx.language = obj.Language
	return ctx, nil
}

// ContextBuilder assembles a Context.
type ContextBuilder struct {
	ctx Context
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{ctx: DefaultContext()}
}

func (b *ContextBuilder) Namespace(ns string) *ContextBuilder {
	b.ctx.namespace = ns
	return b
}

func (b *ContextBuilder) Language(lang string) *ContextBuilder {
	b.ctx.language = &lang
	return b
}

func (b *ContextBuilder) Build() Context {
	return Context{namespace: b.ctx.namespace, language: clonePtr(b.ctx.language)}
}
