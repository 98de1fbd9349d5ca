package activity

// Actor is an Object that can perform activities. Inbox and outbox are
// required by ActivityPub but optional here.
type Actor struct {
	Base              Object         `json:"-"`
	PreferredUsername *string        `json:"preferredUsername,omitempty"`
	Inbox             *string        `json:"inbox,omitempty"`
	Outbox            *string        `json:"outbox,omitempty"`
	Followers         *string        `json:"followers,omitempty"`
	Following         *string        `json:"following,omitempty"`
	Liked             *string        `json:"liked,omitempty"`
	PublicKey         *PublicKeyInfo `json:"publicKey,omitempty"`
}

// PublicKeyInfo publishes the key an actor signs its requests with.
type PublicKeyInfo struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

type actorFields Actor

func (a Actor) MarshalJSON() ([]byte, error) {
	return marshalFlat(a.Base, actorFields(a))
}

func (a *Actor) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &a.Base, (*actorFields)(a)); err != nil {
		return &ParseError{Entity: "Actor", Err: err}
	}
	return nil
}

func (a Actor) Clone() Actor {
	c := a
	c.Base = a.Base.Clone()
	c.PreferredUsername = clonePtr(a.PreferredUsername)
	c.Inbox = clonePtr(a.Inbox)
	c.Outbox = clonePtr(a.Outbox)
	c.Followers = clonePtr(a.Followers)
	c.Following = clonePtr(a.Following)
	c.Liked = clonePtr(a.Liked)
	c.PublicKey = clonePtr(a.PublicKey)
	return c
}

// ActorBuilder assembles an Actor.
type ActorBuilder struct {
	deferred
	actor Actor
}

func NewActorBuilder() *ActorBuilder {
	return &ActorBuilder{}
}

// NewActorBuilderOfType starts an actor of the given type, e.g. PersonType.
func NewActorBuilderOfType(actorType string) *ActorBuilder {
	b := NewActorBuilder()
	b.actor.Base.Type = &actorType
	return b
}

func (b *ActorBuilder) Base(base Object) *ActorBuilder {
	b.actor.Base = base.Clone()
	return b
}

// WithBase edits the base object through an ObjectBuilder seeded with the
// current base.
func (b *ActorBuilder) WithBase(fn func(*ObjectBuilder)) *ActorBuilder {
	ob := &ObjectBuilder{object: b.actor.Base.Clone()}
	fn(ob)
	base, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Base(base)
}

func (b *ActorBuilder) PreferredUsername(name string) *ActorBuilder {
	b.actor.PreferredUsername = &name
	return b
}

func (b *ActorBuilder) Inbox(inbox string) *ActorBuilder {
	b.actor.Inbox = &inbox
	return b
}

func (b *ActorBuilder) Outbox(outbox string) *ActorBuilder {
	b.actor.Outbox = &outbox
	return b
}

func (b *ActorBuilder) Followers(followers string) *ActorBuilder {
	b.actor.Followers = &followers
	return b
}

func (b *ActorBuilder) Following(following string) *ActorBuilder {
	b.actor.Following = &following
	return b
}

func (b *ActorBuilder) Liked(liked string) *ActorBuilder {
	b.actor.Liked = &liked
	return b
}

func (b *ActorBuilder) PublicKey(key PublicKeyInfo) *ActorBuilder {
	b.actor.PublicKey = &key
	return b
}

func (b *ActorBuilder) Build() (Actor, error) {
	if b.err != nil {
		return Actor{}, b.err
	}
	return b.actor.Clone(), nil
}

func (b *ActorBuilder) MustBuild() Actor {
	a, err := b.Build()
	if err != nil {
		panic(err)
	}
	return a
}
