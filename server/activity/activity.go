package activity

// Activity is an Object that describes some form of action that may happen,
// is happening, or has already happened. Its own properties are written next
// to the Base object's properties in a single JSON object.
type Activity struct {
	Base       Object   `json:"-"`
	Actor      *Actor   `json:"actor,omitempty"`
	Object     *Object  `json:"object,omitempty"`
	Target     *Object  `json:"target,omitempty"`
	Result     *string  `json:"result,omitempty"`
	To         []string `json:"to,omitempty"`
	Origin     *string  `json:"origin,omitempty"`     // TODO: model as Object or Link
	Instrument *string  `json:"instrument,omitempty"` // TODO: model as Object or Link
}

type activityFields Activity

func (a Activity) MarshalJSON() ([]byte, error) {
	return marshalFlat(a.Base, activityFields(a))
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &a.Base, (*activityFields)(a)); err != nil {
		return &ParseError{Entity: "Activity", Err: err}
	}
	return nil
}

func (a Activity) Clone() Activity {
	c := a
	c.Base = a.Base.Clone()
	if a.Actor != nil {
		c.Actor = ptr(a.Actor.Clone())
	}
	if a.Object != nil {
		c.Object = ptr(a.Object.Clone())
	}
	if a.Target != nil {
		c.Target = ptr(a.Target.Clone())
	}
	c.Result = clonePtr(a.Result)
	c.To = cloneStrings(a.To)
	c.Origin = clonePtr(a.Origin)
	c.Instrument = clonePtr(a.Instrument)
	return c
}

// IntransitiveActivity is an Activity whose action has no direct object,
// such as Arrive or Travel. It is identical on the wire. The Object field is
// inappropriate for these activities but is not rejected if a caller sets it.
type IntransitiveActivity struct {
	Activity
}

// ActivityBuilder assembles an Activity.
type ActivityBuilder struct {
	deferred
	activity Activity
}

func NewActivityBuilder() *ActivityBuilder {
	return &ActivityBuilder{}
}

// NewActivityBuilderOfType starts an activity with a type and summary.
func NewActivityBuilderOfType(activityType, summary string) *ActivityBuilder {
	b := NewActivityBuilder()
	b.activity.Base.Type = &activityType
	b.activity.Base.Summary = &summary
	return b
}

func (b *ActivityBuilder) Base(base Object) *ActivityBuilder {
	b.activity.Base = base.Clone()
	return b
}

// WithBase edits the base object through an ObjectBuilder seeded with the
// current base.
func (b *ActivityBuilder) WithBase(fn func(*ObjectBuilder)) *ActivityBuilder {
	ob := &ObjectBuilder{object: b.activity.Base.Clone()}
	fn(ob)
	base, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Base(base)
}

func (b *ActivityBuilder) Actor(actor Actor) *ActivityBuilder {
	b.activity.Actor = ptr(actor.Clone())
	return b
}

// WithActor builds the actor from a fresh ActorBuilder.
func (b *ActivityBuilder) WithActor(fn func(*ActorBuilder)) *ActivityBuilder {
	ab := NewActorBuilder()
	fn(ab)
	actor, err := ab.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Actor(actor)
}

func (b *ActivityBuilder) Object(object Object) *ActivityBuilder {
	b.activity.Object = ptr(object.Clone())
	return b
}

// WithObject builds the object from a fresh ObjectBuilder.
func (b *ActivityBuilder) WithObject(fn func(*ObjectBuilder)) *ActivityBuilder {
	ob := NewObjectBuilder()
	fn(ob)
	object, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Object(object)
}

func (b *ActivityBuilder) Target(target Object) *ActivityBuilder {
	b.activity.Target = ptr(target.Clone())
	return b
}

// WithTarget builds the target from a fresh ObjectBuilder.
func (b *ActivityBuilder) WithTarget(fn func(*ObjectBuilder)) *ActivityBuilder {
	ob := NewObjectBuilder()
	fn(ob)
	target, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Target(target)
}

func (b *ActivityBuilder) Result(result string) *ActivityBuilder {
	b.activity.Result = &result
	return b
}

// To appends recipients.
func (b *ActivityBuilder) To(to ...string) *ActivityBuilder {
	b.activity.To = append(b.activity.To, to...)
	return b
}

func (b *ActivityBuilder) Origin(origin string) *ActivityBuilder {
	b.activity.Origin = &origin
	return b
}

func (b *ActivityBuilder) Instrument(instrument string) *ActivityBuilder {
	b.activity.Instrument = &instrument
	return b
}

func (b *ActivityBuilder) Build() (Activity, error) {
	if b.err != nil {
		return Activity{}, b.err
	}
	return b.activity.Clone(), nil
}

func (b *ActivityBuilder) MustBuild() Activity {
	a, err := b.Build()
	if err != nil {
		panic(err)
	}
	return a
}

// IntransitiveActivityBuilder assembles an IntransitiveActivity. It offers
// no way to set the object.
type IntransitiveActivityBuilder struct {
	b ActivityBuilder
}

func NewIntransitiveActivityBuilder(activityType string) *IntransitiveActivityBuilder {
	ib := &IntransitiveActivityBuilder{}
	ib.b.activity.Base.Type = &activityType
	return ib
}

func (ib *IntransitiveActivityBuilder) WithBase(fn func(*ObjectBuilder)) *IntransitiveActivityBuilder {
	ib.b.WithBase(fn)
	return ib
}

func (ib *IntransitiveActivityBuilder) Actor(actor Actor) *IntransitiveActivityBuilder {
	ib.b.Actor(actor)
	return ib
}

func (ib *IntransitiveActivityBuilder) WithActor(fn func(*ActorBuilder)) *IntransitiveActivityBuilder {
	ib.b.WithActor(fn)
	return ib
}

func (ib *IntransitiveActivityBuilder) Target(target Object) *IntransitiveActivityBuilder {
	ib.b.Target(target)
	return ib
}

func (ib *IntransitiveActivityBuilder) WithTarget(fn func(*ObjectBuilder)) *IntransitiveActivityBuilder {
	ib.b.WithTarget(fn)
	return ib
}

func (ib *IntransitiveActivityBuilder) Result(result string) *IntransitiveActivityBuilder {
	ib.b.Result(result)
	return ib
}

func (ib *IntransitiveActivityBuilder) To(to ...string) *IntransitiveActivityBuilder {
	ib.b.To(to...)
	return ib
}

func (ib *IntransitiveActivityBuilder) Origin(origin string) *IntransitiveActivityBuilder {
	ib.b.Origin(origin)
	return ib
}

func (ib *IntransitiveActivityBuilder) Instrument(instrument string) *IntransitiveActivityBuilder {
	ib.b.Instrument(instrument)
	return ib
}

func (ib *IntransitiveActivityBuilder) Build() (IntransitiveActivity, error) {
	a, err := ib.b.Build()
	if err != nil {
		return IntransitiveActivity{}, err
	}
	return IntransitiveActivity{Activity: a}, nil
}
