package activity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/activitystreams/internal/json"
)

// JSONDiff compares raw JSON structurally instead of byte by byte.
func JSONDiff() cmp.Option {
	return cmp.Options{
		cmp.FilterValues(func(x, y json.RawMessage) bool {
			return json.Valid(x) && json.Valid(y)
		}, cmp.Transformer("ParseJSON", func(in json.RawMessage) (out any) {
			if err := json.Unmarshal(in, &out); err != nil {
				panic(err) // should never occur given previous filter to ensure valid JSON
			}
			return out
		})),
	}
}

func assertJSON(t *testing.T, want string, got []byte) {
	t.Helper()
	if diff := cmp.Diff(json.RawMessage(want), json.RawMessage(got), JSONDiff()); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}

func pretty[T any](t *testing.T, doc Document[T]) string {
	t.Helper()
	b, err := doc.SerializePretty()
	require.NoError(t, err)
	return string(b)
}

// keysOf returns the top level keys of a JSON object.
func keysOf(t *testing.T, b []byte) []string {
	t.Helper()
	members, err := splitObject(b)
	require.NoError(t, err)
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = m.key
	}
	return keys
}
