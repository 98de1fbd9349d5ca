package server

import (
	"context"
	"crypto"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/data"
	"github.com/tkrehbiel/activitystreams/server/storage"
)

type mockFollowers struct {
	mock.Mock
}

func (m *mockFollowers) GetFollowers() ([]storage.Follow, error) {
	args := m.Called()
	if l, ok := args.Get(0).([]storage.Follow); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFollowers) FindFollow(id string) (*storage.Follow, error) {
	args := m.Called(id)
	if f, ok := args.Get(0).(*storage.Follow); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFollowers) DeleteFollow(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *mockFollowers) SaveFollow(f storage.Follow) error {
	args := m.Called(f)
	return args.Error(0)
}

type mockCollection struct {
	mock.Mock
}

func (m *mockCollection) Open() error {
	return m.Called().Error(0)
}

func (m *mockCollection) Close() {
	m.Called()
}

func (m *mockCollection) Upsert(ctx context.Context, rec data.Record) error {
	return m.Called(rec).Error(0)
}

func (m *mockCollection) SelectAll(ctx context.Context) ([]data.Record, error) {
	args := m.Called()
	if l, ok := args.Get(0).([]data.Record); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCollection) SelectLatest(ctx context.Context, n int) ([]data.Record, error) {
	args := m.Called(n)
	if l, ok := args.Get(0).([]data.Record); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCollection) Find(ctx context.Context, id string) (*data.Record, error) {
	args := m.Called(id)
	if r, ok := args.Get(0).(*data.Record); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Actor(ctx context.Context, id string) (activity.Actor, error) {
	args := m.Called(id)
	if a, ok := args.Get(0).(activity.Actor); ok {
		return a, args.Error(1)
	}
	return activity.Actor{}, args.Error(1)
}

func (m *mockRemote) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	args := m.Called(keyID)
	if k, ok := args.Get(0).(crypto.PublicKey); ok {
		return k, args.Error(1)
	}
	return nil, args.Error(1)
}

// remoteActor is a minimal actor with an inbox.
func remoteActor(id, inbox string) activity.Actor {
	return activity.NewActorBuilderOfType(activity.PersonType).
		WithBase(func(o *activity.ObjectBuilder) { o.ID(id) }).
		Inbox(inbox).
		MustBuild()
}

// startPipeline runs a pipeline without retries until the test ends.
func startPipeline(t *testing.T) *OutputPipeline {
	t.Helper()
	pipeline := NewPipeline(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pipeline.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return pipeline
}

// inboxServer simulates a remote inbox, passing every posted activity on.
func inboxServer(t *testing.T, received chan<- activity.Activity) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, activity.ContentTypeLD, r.Header.Get("Content-Type"))
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		doc, err := activity.ParseDocument[activity.Activity](b)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		received <- doc.Payload
	}))
	t.Cleanup(srv.Close)
	return srv
}
