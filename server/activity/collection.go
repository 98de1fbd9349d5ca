package activity

import (
	"slices"
)

// Collection is an Object holding an unordered set of items. TotalItems is
// filled in by the builder only when there are items; empty collections
// carry neither key on the wire.
type Collection[T any] struct {
	Base       Object `json:"-"`
	TotalItems *int   `json:"totalItems,omitempty"`
	Items      []T    `json:"items,omitempty"`
}

type collectionFields[T any] Collection[T]

func (c Collection[T]) MarshalJSON() ([]byte, error) {
	return marshalFlat(c.Base, collectionFields[T](c))
}

func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &c.Base, (*collectionFields[T])(c)); err != nil {
		return &ParseError{Entity: "Collection", Err: err}
	}
	return nil
}

// OrderedCollection is a Collection whose items are strictly ordered. The
// items are written as orderedItems.
type OrderedCollection[T any] struct {
	Base         Object `json:"-"`
	TotalItems   *int   `json:"totalItems,omitempty"`
	OrderedItems []T    `json:"orderedItems,omitempty"`
}

type orderedCollectionFields[T any] OrderedCollection[T]

func (c OrderedCollection[T]) MarshalJSON() ([]byte, error) {
	return marshalFlat(c.Base, orderedCollectionFields[T](c))
}

func (c *OrderedCollection[T]) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &c.Base, (*orderedCollectionFields[T])(c)); err != nil {
		return &ParseError{Entity: "OrderedCollection", Err: err}
	}
	return nil
}

// CollectionPage is one page of a Collection. PartOf is required.
type CollectionPage[T any] struct {
	Base   Collection[T] `json:"-"`
	PartOf string        `json:"partOf"`
	Next   *string       `json:"next,omitempty"`
	Prev   *string       `json:"prev,omitempty"`
}

type collectionPageFields[T any] CollectionPage[T]

func (p CollectionPage[T]) MarshalJSON() ([]byte, error) {
	return marshalFlat(p.Base, collectionPageFields[T](p))
}

func (p *CollectionPage[T]) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &p.Base, (*collectionPageFields[T])(p)); err != nil {
		return &ParseError{Entity: "CollectionPage", Err: err}
	}
	if p.PartOf == "" {
		return missing("CollectionPage", "partOf")
	}
	return nil
}

// OrderedCollectionPage is one page of an OrderedCollection.
type OrderedCollectionPage[T any] struct {
	Base   OrderedCollection[T] `json:"-"`
	PartOf string               `json:"partOf"`
	Next   *string              `json:"next,omitempty"`
	Prev   *string              `json:"prev,omitempty"`
}

type orderedCollectionPageFields[T any] OrderedCollectionPage[T]

func (p OrderedCollectionPage[T]) MarshalJSON() ([]byte, error) {
	return marshalFlat(p.Base, orderedCollectionPageFields[T](p))
}

func (p *OrderedCollectionPage[T]) UnmarshalJSON(data []byte) error {
	if err := unmarshalFlat(data, &p.Base, (*orderedCollectionPageFields[T])(p)); err != nil {
		return &ParseError{Entity: "OrderedCollectionPage", Err: err}
	}
	if p.PartOf == "" {
		return missing("OrderedCollectionPage", "partOf")
	}
	return nil
}

// countOf is the totalItems value for n items.
func countOf(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// CollectionBuilder assembles a Collection. Items are copied shallowly.
type CollectionBuilder[T any] struct {
	deferred
	collection Collection[T]
}

func NewCollectionBuilder[T any]() *CollectionBuilder[T] {
	b := &CollectionBuilder[T]{}
	b.collection.Base.Type = ptr(CollectionType)
	return b
}

func (b *CollectionBuilder[T]) Base(base Object) *CollectionBuilder[T] {
	b.collection.Base = base.Clone()
	return b
}

// WithBase edits the base object through an ObjectBuilder seeded with the
// current base.
func (b *CollectionBuilder[T]) WithBase(fn func(*ObjectBuilder)) *CollectionBuilder[T] {
	ob := &ObjectBuilder{object: b.collection.Base.Clone()}
	fn(ob)
	base, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Base(base)
}

// Items appends items in order.
func (b *CollectionBuilder[T]) Items(items ...T) *CollectionBuilder[T] {
	b.collection.Items = append(b.collection.Items, items...)
	return b
}

func (b *CollectionBuilder[T]) Build() (Collection[T], error) {
	if b.err != nil {
		return Collection[T]{}, b.err
	}
	return Collection[T]{
		Base:       b.collection.Base.Clone(),
		TotalItems: countOf(len(b.collection.Items)),
		Items:      slices.Clone(b.collection.Items),
	}, nil
}

func (b *CollectionBuilder[T]) MustBuild() Collection[T] {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// OrderedCollectionBuilder assembles an OrderedCollection.
type OrderedCollectionBuilder[T any] struct {
	deferred
	collection OrderedCollection[T]
}

func NewOrderedCollectionBuilder[T any]() *OrderedCollectionBuilder[T] {
	b := &OrderedCollectionBuilder[T]{}
	b.collection.Base.Type = ptr(OrderedCollectionType)
	return b
}

func (b *OrderedCollectionBuilder[T]) Base(base Object) *OrderedCollectionBuilder[T] {
	b.collection.Base = base.Clone()
	return b
}

func (b *OrderedCollectionBuilder[T]) WithBase(fn func(*ObjectBuilder)) *OrderedCollectionBuilder[T] {
	ob := &ObjectBuilder{object: b.collection.Base.Clone()}
	fn(ob)
	base, err := ob.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Base(base)
}

func (b *OrderedCollectionBuilder[T]) Items(items ...T) *OrderedCollectionBuilder[T] {
	b.collection.OrderedItems = append(b.collection.OrderedItems, items...)
	return b
}

func (b *OrderedCollectionBuilder[T]) Build() (OrderedCollection[T], error) {
	if b.err != nil {
		return OrderedCollection[T]{}, b.err
	}
	return OrderedCollection[T]{
		Base:         b.collection.Base.Clone(),
		TotalItems:   countOf(len(b.collection.OrderedItems)),
		OrderedItems: slices.Clone(b.collection.OrderedItems),
	}, nil
}

func (b *OrderedCollectionBuilder[T]) MustBuild() OrderedCollection[T] {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// CollectionPageBuilder assembles a CollectionPage.
type CollectionPageBuilder[T any] struct {
	deferred
	page CollectionPage[T]
}

func NewCollectionPageBuilder[T any]() *CollectionPageBuilder[T] {
	b := &CollectionPageBuilder[T]{}
	b.page.Base.Base.Type = ptr(CollectionPageType)
	return b
}

// Collection installs c as the page's collection. A collection typed
// plainly as Collection, or not typed at all, keeps the page's own type.
func (b *CollectionPageBuilder[T]) Collection(c Collection[T]) *CollectionPageBuilder[T] {
	pageType := b.page.Base.Base.Type
	b.page.Base = c
	if keepPageType(c.Base.Type, CollectionType) {
		b.page.Base.Base.Type = pageType
	}
	return b
}

// WithCollection builds the page's collection from a fresh builder whose
// type is already set to CollectionPage.
func (b *CollectionPageBuilder[T]) WithCollection(fn func(*CollectionBuilder[T])) *CollectionPageBuilder[T] {
	cb := NewCollectionBuilder[T]()
	cb.collection.Base.Type = ptr(CollectionPageType)
	fn(cb)
	c, err := cb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Collection(c)
}

func (b *CollectionPageBuilder[T]) PartOf(collection string) *CollectionPageBuilder[T] {
	b.page.PartOf = collection
	return b
}

func (b *CollectionPageBuilder[T]) Next(next string) *CollectionPageBuilder[T] {
	b.page.Next = &next
	return b
}

func (b *CollectionPageBuilder[T]) Prev(prev string) *CollectionPageBuilder[T] {
	b.page.Prev = &prev
	return b
}

// Build fails with a BuildError when partOf was never set.
func (b *CollectionPageBuilder[T]) Build() (CollectionPage[T], error) {
	if b.err != nil {
		return CollectionPage[T]{}, b.err
	}
	if b.page.PartOf == "" {
		return CollectionPage[T]{}, &BuildError{Entity: "CollectionPage", Field: "partOf"}
	}
	p := b.page
	p.Base.Base = p.Base.Base.Clone()
	p.Base.TotalItems = clonePtr(p.Base.TotalItems)
	p.Base.Items = slices.Clone(p.Base.Items)
	p.Next = clonePtr(p.Next)
	p.Prev = clonePtr(p.Prev)
	return p, nil
}

func (b *CollectionPageBuilder[T]) MustBuild() CollectionPage[T] {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

func keepPageType(collectionType *string, plain string) bool {
	return collectionType == nil || *collectionType == plain
}

// OrderedCollectionPageBuilder assembles an OrderedCollectionPage.
type OrderedCollectionPageBuilder[T any] struct {
	deferred
	page OrderedCollectionPage[T]
}

func NewOrderedCollectionPageBuilder[T any]() *OrderedCollectionPageBuilder[T] {
	b := &OrderedCollectionPageBuilder[T]{}
	b.page.Base.Base.Type = ptr(OrderedCollectionPageType)
	return b
}

// Collection installs c as the page's collection, keeping the page's type
// unless c carries one other than OrderedCollection.
func (b *OrderedCollectionPageBuilder[T]) Collection(c OrderedCollection[T]) *OrderedCollectionPageBuilder[T] {
	pageType := b.page.Base.Base.Type
	b.page.Base = c
	if keepPageType(c.Base.Type, OrderedCollectionType) {
		b.page.Base.Base.Type = pageType
	}
	return b
}

func (b *OrderedCollectionPageBuilder[T]) WithCollection(fn func(*OrderedCollectionBuilder[T])) *OrderedCollectionPageBuilder[T] {
	cb := NewOrderedCollectionBuilder[T]()
	cb.collection.Base.Type = ptr(OrderedCollectionPageType)
	fn(cb)
	c, err := cb.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Collection(c)
}

func (b *OrderedCollectionPageBuilder[T]) PartOf(collection string) *OrderedCollectionPageBuilder[T] {
	b.page.PartOf = collection
	return b
}

func (b *OrderedCollectionPageBuilder[T]) Next(next string) *OrderedCollectionPageBuilder[T] {
	b.page.Next = &next
	return b
}

func (b *OrderedCollectionPageBuilder[T]) Prev(prev string) *OrderedCollectionPageBuilder[T] {
	b.page.Prev = &prev
	return b
}

func (b *OrderedCollectionPageBuilder[T]) Build() (OrderedCollectionPage[T], error) {
	if b.err != nil {
		return OrderedCollectionPage[T]{}, b.err
	}
	if b.page.PartOf == "" {
		return OrderedCollectionPage[T]{}, &BuildError{Entity: "OrderedCollectionPage", Field: "partOf"}
	}
	p := b.page
	p.Base.Base = p.Base.Base.Clone()
	p.Base.TotalItems = clonePtr(p.Base.TotalItems)
	p.Base.OrderedItems = slices.Clone(p.Base.OrderedItems)
	p.Next = clonePtr(p.Next)
	p.Prev = clonePtr(p.Prev)
	return p, nil
}

func (b *OrderedCollectionPageBuilder[T]) MustBuild() OrderedCollectionPage[T] {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
