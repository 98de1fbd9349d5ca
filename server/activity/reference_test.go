package activity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/activitystreams/internal/json"
)

func TestAttributedTo_ObjectShape(t *testing.T) {
	raw := `{"@context":{"@vocab":"https://www.w3.org/ns/activitystreams"},"type":"Image","name":"My cat taking a nap","url":"http://example.org/cat.jpeg","attributedTo":[{"type":"Person","name":"Joe Smith"}]}`

	doc, err := ParseDocument[Object]([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Payload.AttributedTo, 1)
	ref := doc.Payload.AttributedTo[0]
	assert.True(t, ref.IsObject())
	assert.False(t, ref.IsLink())
	assert.Equal(t, "Joe Smith", *ref.Object.Name)

	b, err := doc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, raw, string(b))
}

func TestAttributedTo_LinkShape(t *testing.T) {
	var ref AttributedTo
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Link","href":"http://joe.example.org","mediaType":"text/html"}`), &ref))
	assert.True(t, ref.IsLink())
	assert.Nil(t, ref.Object)
	assert.Equal(t, "http://joe.example.org", ref.Link.Href)
}

func TestAttributedTo_EmptyObjectIsObject(t *testing.T) {
	var ref AttributedTo
	require.NoError(t, json.Unmarshal([]byte(`{}`), &ref))
	assert.True(t, ref.IsObject())
}

func TestAttributedTo_NoVariant(t *testing.T) {
	for _, raw := range []string{`"http://joe.example.org"`, `42`, `[{}]`, `true`} {
		_, err := resolveReference("attributedTo", []byte(raw))
		require.Error(t, err, raw)
		var refErr *ReferenceError
		require.True(t, errors.As(err, &refErr), raw)
		assert.Equal(t, "attributedTo", refErr.Property)
		assert.True(t, errors.Is(err, ErrNoVariant), raw)
	}

	_, err := ParseDocument[Object]([]byte(`{"@context":{},"attributedTo":["http://joe.example.org"]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestAttributedTo_MarshalPrefersObject(t *testing.T) {
	both := AttributedTo{
		Object: ptr(NewObjectBuilderOfType(PersonType).MustBuild()),
		Link:   ptr(NewLink("http://joe.example.org", "text/html")),
	}
	b, err := both.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"Person"}`, string(b))

	_, err = AttributedTo{}.MarshalJSON()
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestAttributedTo_MixedSequence(t *testing.T) {
	obj := NewObjectBuilder().AttributedTo(
		AttributedToLink(NewLink("http://joe.example.org", "text/html")),
		AttributedToObject(NewObjectBuilderOfType(PersonType).Name("Sally").MustBuild()),
	).MustBuild()

	b, err := NewDocument(DefaultContext(), obj).Serialize()
	require.NoError(t, err)
	parsed, err := ParseDocument[Object](b)
	require.NoError(t, err)
	require.Len(t, parsed.Payload.AttributedTo, 2)
	assert.True(t, parsed.Payload.AttributedTo[0].IsLink())
	assert.True(t, parsed.Payload.AttributedTo[1].IsObject())
}
