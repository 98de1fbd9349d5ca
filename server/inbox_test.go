package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/data"
	"github.com/tkrehbiel/activitystreams/server/keys"
	"github.com/tkrehbiel/activitystreams/server/storage"
)

const (
	testOwnerID  = "https://local.example/a/joe"
	testRemoteID = "https://remote.example/users/sally"
	testFollowID = "https://remote.example/follows/1"
)

func activityDocument(t *testing.T, b *activity.ActivityBuilder) []byte {
	t.Helper()
	act, err := b.Build()
	require.NoError(t, err)
	body, err := activity.NewDocument(activity.DefaultContext(), act).Serialize()
	require.NoError(t, err)
	return body
}

func followActivity(id, actorID, objectID string) *activity.ActivityBuilder {
	return activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) { o.Type(activity.FollowType).ID(id) }).
		WithActor(func(a *activity.ActorBuilder) {
			a.WithBase(func(o *activity.ObjectBuilder) { o.ID(actorID) })
		}).
		WithObject(func(o *activity.ObjectBuilder) { o.ID(objectID) })
}

func post(inbox *ActivityInbox, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "https://local.example/a/joe/inbox", bytes.NewReader(body))
	w := httptest.NewRecorder()
	inbox.PostHTTP(w, r)
	return w
}

func waitFor(t *testing.T, received <-chan activity.Activity) activity.Activity {
	t.Helper()
	select {
	case act := <-received:
		return act
	case <-time.After(5 * time.Second):
		t.Fatal("nothing delivered")
	}
	return activity.Activity{}
}

func testInbox(t *testing.T, followers storage.Followers, remote remoteActors) *ActivityInbox {
	return &ActivityInbox{
		id:             testOwnerID + "/inbox",
		ownerID:        testOwnerID,
		followers:      followers,
		remote:         remote,
		pipeline:       startPipeline(t),
		acceptUnsigned: true,
	}
}

func TestInbox_GetHTTP(t *testing.T) {
	inbox := testInbox(t, nil, nil)
	w := httptest.NewRecorder()
	inbox.GetHTTP(w, httptest.NewRequest(http.MethodGet, "/a/joe/inbox", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, activity.ContentTypeLD, w.Header().Get("Content-Type"))
	doc, err := activity.ParseDocument[activity.OrderedCollection[activity.Object]](w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, activity.OrderedCollectionType, *doc.Payload.Base.Type)
	assert.Equal(t, testOwnerID+"/inbox", *doc.Payload.Base.ID)
	assert.Empty(t, doc.Payload.OrderedItems)
}

// A complex integration test of the happy path for Follow and Accept logic
func TestInbox_Follow(t *testing.T) {
	received := make(chan activity.Activity, 1)
	remoteInbox := inboxServer(t, received)

	remote := &mockRemote{}
	remote.On("Actor", testRemoteID).Return(remoteActor(testRemoteID, remoteInbox.URL), nil).Once()

	pending := storage.Follow{ID: testRemoteID, RequestID: testFollowID, RequestStatus: storage.FollowPending}
	accepted := pending
	accepted.RequestStatus = storage.FollowAccepted

	followers := &mockFollowers{}
	followers.On("FindFollow", testRemoteID).Return(nil, nil).Once()
	followers.On("GetFollowers").Return([]storage.Follow{}, nil).Once()
	followers.On("SaveFollow", pending).Return(nil).Once()
	followers.On("SaveFollow", accepted).Return(nil).Once()

	inbox := testInbox(t, followers, remote)
	w := post(inbox, activityDocument(t, followActivity(testFollowID, testRemoteID, testOwnerID)))
	assert.Equal(t, http.StatusOK, w.Code)

	accept := waitFor(t, received)
	inbox.pipeline.Flush()

	assert.Equal(t, activity.AcceptType, *accept.Base.Type)
	assert.Equal(t, testOwnerID, *accept.Actor.Base.ID)
	assert.Equal(t, testFollowID, *accept.Object.ID)
	assert.Equal(t, activity.FollowType, *accept.Object.Type)
	assert.Equal(t, []string{testRemoteID}, accept.To)

	followers.AssertExpectations(t)
	remote.AssertExpectations(t)
}

func TestInbox_FollowRejectedWhenFull(t *testing.T) {
	received := make(chan activity.Activity, 1)
	remoteInbox := inboxServer(t, received)

	remote := &mockRemote{}
	remote.On("Actor", testRemoteID).Return(remoteActor(testRemoteID, remoteInbox.URL), nil)

	followers := &mockFollowers{}
	followers.On("FindFollow", testRemoteID).Return(nil, nil).Once()
	followers.On("GetFollowers").Return([]storage.Follow{{ID: "someone"}}, nil).Once()

	inbox := testInbox(t, followers, remote)
	inbox.maxFollowers = 1
	w := post(inbox, activityDocument(t, followActivity(testFollowID, testRemoteID, testOwnerID)))
	assert.Equal(t, http.StatusOK, w.Code)

	reject := waitFor(t, received)
	inbox.pipeline.Flush()
	assert.Equal(t, activity.RejectType, *reject.Base.Type)
	followers.AssertNotCalled(t, "SaveFollow", mock.Anything)
	followers.AssertExpectations(t)
}

func TestInbox_FollowWrongInbox(t *testing.T) {
	followers := &mockFollowers{}
	inbox := testInbox(t, followers, &mockRemote{})
	w := post(inbox, activityDocument(t, followActivity(testFollowID, testRemoteID, "https://local.example/a/someone-else")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	followers.AssertExpectations(t)
}

func TestInbox_FollowDatabaseError(t *testing.T) {
	followers := &mockFollowers{}
	followers.On("FindFollow", testRemoteID).Return(nil, errors.New("disk on fire")).Once()
	inbox := testInbox(t, followers, &mockRemote{})
	w := post(inbox, activityDocument(t, followActivity(testFollowID, testRemoteID, testOwnerID)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	followers.AssertExpectations(t)
}

func TestInbox_Unfollow(t *testing.T) {
	const undoID = "https://remote.example/undo/1"
	received := make(chan activity.Activity, 1)
	remoteInbox := inboxServer(t, received)

	remote := &mockRemote{}
	remote.On("Actor", testRemoteID).Return(remoteActor(testRemoteID, remoteInbox.URL), nil)

	followers := &mockFollowers{}
	followers.On("DeleteFollow", testRemoteID).Return(nil).Once()

	inbox := testInbox(t, followers, remote)
	undo := activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) { o.Type(activity.UndoType).ID(undoID) }).
		WithActor(func(a *activity.ActorBuilder) {
			a.WithBase(func(o *activity.ObjectBuilder) { o.ID(testRemoteID) })
		}).
		WithObject(func(o *activity.ObjectBuilder) { o.Type(activity.FollowType).ID(testFollowID) })
	w := post(inbox, activityDocument(t, undo))
	assert.Equal(t, http.StatusOK, w.Code)

	accept := waitFor(t, received)
	inbox.pipeline.Flush()
	assert.Equal(t, activity.AcceptType, *accept.Base.Type)
	assert.Equal(t, undoID, *accept.Object.ID)
	assert.Equal(t, activity.UndoType, *accept.Object.Type)
	followers.AssertExpectations(t)
}

func TestInbox_UndoSomethingElse(t *testing.T) {
	inbox := testInbox(t, &mockFollowers{}, &mockRemote{})
	undo := activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) { o.Type(activity.UndoType).ID("undo") }).
		WithObject(func(o *activity.ObjectBuilder) { o.Type("Like").ID("like") })
	w := post(inbox, activityDocument(t, undo))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func createActivity(id string) *activity.ActivityBuilder {
	return activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) { o.Type(activity.CreateType).ID(id) }).
		WithActor(func(a *activity.ActorBuilder) {
			a.WithBase(func(o *activity.ObjectBuilder) { o.ID(testRemoteID) })
		}).
		Object(activity.NewNoteBuilder("hello", "<p>hello</p>").ID(id + "/note").MustBuild())
}

func TestInbox_CreateStored(t *testing.T) {
	const createID = "https://remote.example/create/1"
	store := &mockCollection{}
	store.On("Upsert", mock.MatchedBy(func(rec data.Record) bool {
		return rec.ID == createID && len(rec.JSON) > 0
	})).Return(nil).Once()

	inbox := testInbox(t, &mockFollowers{}, &mockRemote{})
	inbox.received = store
	w := post(inbox, activityDocument(t, createActivity(createID)))
	assert.Equal(t, http.StatusAccepted, w.Code)
	store.AssertExpectations(t)
}

func TestInbox_Rejects(t *testing.T) {
	inbox := testInbox(t, &mockFollowers{}, &mockRemote{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", `{"type":`, http.StatusBadRequest},
		{"no context", `{"type":"Follow"}`, http.StatusBadRequest},
		{"unknown type", `{"@context":"https://www.w3.org/ns/activitystreams","type":"Like"}`, http.StatusMethodNotAllowed},
		{"string actor", `{"@context":"https://www.w3.org/ns/activitystreams","type":"Follow","actor":"https://remote.example/users/sally"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(inbox, []byte(tt.body))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestInbox_RequiresSignature(t *testing.T) {
	inbox := testInbox(t, &mockFollowers{}, &mockRemote{})
	inbox.acceptUnsigned = false
	w := post(inbox, activityDocument(t, createActivity("https://remote.example/create/2")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInbox_SignedCreate(t *testing.T) {
	const keyID = testRemoteID + "#main-key"
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	remote := &mockRemote{}
	remote.On("PublicKey", keyID).Return(&privKey.PublicKey, nil).Once()

	store := &mockCollection{}
	store.On("Upsert", mock.Anything).Return(nil).Once()

	inbox := testInbox(t, &mockFollowers{}, remote)
	inbox.acceptUnsigned = false
	inbox.received = store

	body := activityDocument(t, createActivity("https://remote.example/create/3"))
	r := httptest.NewRequest(http.MethodPost, "https://local.example/a/joe/inbox", bytes.NewReader(body))
	r.Header.Set("Content-Type", activity.ContentTypeLD)
	require.NoError(t, keys.Sign(r, body, privKey, keyID))

	w := httptest.NewRecorder()
	inbox.PostHTTP(w, r)
	assert.Equal(t, http.StatusAccepted, w.Code)
	remote.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestInbox_BadSignature(t *testing.T) {
	const keyID = testRemoteID + "#main-key"
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	remote := &mockRemote{}
	remote.On("PublicKey", keyID).Return(&otherKey.PublicKey, nil).Once()

	inbox := testInbox(t, &mockFollowers{}, remote)
	inbox.acceptUnsigned = false

	body := activityDocument(t, createActivity("https://remote.example/create/4"))
	r := httptest.NewRequest(http.MethodPost, "https://local.example/a/joe/inbox", bytes.NewReader(body))
	r.Header.Set("Content-Type", activity.ContentTypeLD)
	require.NoError(t, keys.Sign(r, body, privKey, keyID))

	w := httptest.NewRecorder()
	inbox.PostHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
