package server

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/data"
	"github.com/tkrehbiel/activitystreams/server/keys"
	"github.com/tkrehbiel/activitystreams/server/storage"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

const maxInboxBytes = 1 << 16

// remoteActors is what the inbox needs to know about other servers
type remoteActors interface {
	actorLookup
	PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error)
}

type ActivityInbox struct {
	id             string
	ownerID        string // id of the owner of the inbox
	followers      storage.Followers
	received       data.Collection
	remote         remoteActors
	pipeline       *OutputPipeline
	signer         *signer
	acceptUnsigned bool
	maxFollowers   int
}

// GetHTTP handles GET requests to the inbox. Received activities are not
// shared, so this is always an empty collection.
func (ai *ActivityInbox) GetHTTP(w http.ResponseWriter, r *http.Request) {
	telemetry.Request(r, "ActivityInbox.GetHTTP [%s]", ai.id)
	telemetry.Increment("get_requests", 1)
	collection := activity.NewOrderedCollectionBuilder[activity.Object]().
		WithBase(func(o *activity.ObjectBuilder) { o.ID(ai.id) }).
		MustBuild()
	writeDocument(w, activity.ContentTypeLD, activity.NewDocument(activity.DefaultContext(), collection))
}

// PostHTTP handles POST requests to the inbox.
// This is where the bulk of handling communications from remote federated servers happens.
// e.g. Follow requests will come in through here.
func (ai *ActivityInbox) PostHTTP(w http.ResponseWriter, r *http.Request) {
	if ai.pipeline == nil {
		panic("ActivityInbox pipeline missing")
	}

	telemetry.Increment("post_requests", 1)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboxBytes))
	if err != nil {
		telemetry.Error(err, "reading body bytes")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !ai.acceptUnsigned {
		keyID, err := keys.Verify(r.Context(), r, body, ai.remote)
		if err != nil {
			telemetry.Error(err, "signature unverified for %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		telemetry.Trace("signature verified for %s %s by %s", r.Method, r.URL.Path, keyID)
	}

	doc, err := activity.ParseDocument[activity.Activity](body)
	if err != nil {
		telemetry.Error(err, "parsing activity [%s]", string(body))
		telemetry.Increment("parse_errors", 1)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	act := doc.Payload

	switch typeOf(act.Base) {
	case activity.FollowType:
		ai.Follow(w, act)
	case activity.UndoType:
		if act.Object != nil && typeOf(*act.Object) == activity.FollowType {
			ai.Unfollow(w, act)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	case activity.CreateType:
		ai.Receive(r.Context(), w, doc)
	default:
		// unrecognized Activity Type
		telemetry.Trace("unrecognized activity type [%s] %s", typeOf(act.Base), string(body))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Receive stores a delivered Create activity.
func (ai *ActivityInbox) Receive(ctx context.Context, w http.ResponseWriter, doc activity.Document[activity.Activity]) {
	telemetry.Increment("create_requests", 1)
	if ai.received == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	rec, err := data.NewRecord(doc)
	if err != nil {
		telemetry.Error(err, "recording activity at inbox [%s]", ai.id)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := ai.received.Upsert(ctx, rec); err != nil {
		telemetry.Error(err, "database error")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (ai *ActivityInbox) Follow(w http.ResponseWriter, act activity.Activity) {
	telemetry.Increment("follow_requests", 1)

	// The actor is the id of the person who wants to follow
	actorID := actorIDOf(act)

	// The object is the user that is to be followed, which should be the owner of the Inbox.
	objectID := objectIDOf(act)

	var message = fmt.Sprintf("POST follow [%s] by [%s] at inbox [%s]", objectID, actorID, ai.id)
	defer func() {
		telemetry.Log(message)
	}()

	if objectID != ai.ownerID {
		// Trying to follow someone other than the owner of this inbox, doesn't make sense.
		message += " - rejected, wrong inbox"
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	followID := idOf(act.Base)
	if followID == "" {
		// The id is needed in the Accept so the remote server knows what
		// is being accepted.
		message += " - rejected, no follow id"
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	existing, err := ai.followers.FindFollow(actorID)
	if err != nil {
		message += " - rejected, database read error"
		telemetry.Error(err, "database error")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if existing != nil {
		// Already following. The sender still expects an answer, so fall
		// through and accept again.
		message += " - already following"
	}

	responseType := activity.RejectType
	follow := storage.Follow{
		ID:            actorID,
		RequestID:     followID,
		RequestStatus: storage.FollowPending,
	}

	followers, err := ai.followers.GetFollowers()
	if err != nil {
		message += " - rejected, database read error"
		telemetry.Error(err, "database error")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if existing != nil || ai.maxFollowers == 0 || len(followers) < ai.maxFollowers {
		// The follower stays pending until the Accept has been delivered.
		if existing == nil {
			if err := ai.followers.SaveFollow(follow); err != nil {
				message += " - database write error"
				telemetry.Error(err, "database error")
			}
		}
		responseType = activity.AcceptType
	}

	response, err := ai.response(responseType, actorID, activity.NewObjectBuilderOfType(activity.FollowType).
		ID(followID).
		MustBuild())
	if err != nil {
		message += " - response error"
		telemetry.Error(err, "building %s response", responseType)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	delivery := &DocumentDelivery{
		Name:      "Follow " + responseType,
		Recipient: actorID,
		Body:      response,
		actors:    ai.remote,
		signer:    ai.signer,
	}
	if responseType == activity.AcceptType {
		delivery.OnSuccess = func() {
			telemetry.Increment("accept_responses", 1)
			follow.RequestStatus = storage.FollowAccepted
			if err := ai.followers.SaveFollow(follow); err != nil {
				// The remote server believes the follow succeeded, but it
				// stays pending here.
				telemetry.Error(err, "database error")
			}
		}
	}
	telemetry.Trace("queuing a %s response", responseType)
	ai.pipeline.Queue(delivery)

	message += " - success"
	w.WriteHeader(http.StatusOK)
}

func (ai *ActivityInbox) Unfollow(w http.ResponseWriter, undo activity.Activity) {
	telemetry.Increment("undo_requests", 1)

	// The actor of the undo is the follower
	actorID := actorIDOf(undo)

	var message = fmt.Sprintf("POST unfollow by [%s] at inbox [%s]", actorID, ai.id)
	defer func() {
		telemetry.Log(message)
	}()

	undoID := idOf(undo.Base)
	if undoID == "" {
		message += " - rejected, no undo id"
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := ai.followers.DeleteFollow(actorID); err != nil {
		message += " - database delete error"
		telemetry.Error(err, "database error")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	response, err := ai.response(activity.AcceptType, actorID, activity.NewObjectBuilderOfType(activity.UndoType).
		ID(undoID).
		MustBuild())
	if err != nil {
		message += " - response error"
		telemetry.Error(err, "building accept response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	telemetry.Trace("queuing an accept response")
	ai.pipeline.Queue(&DocumentDelivery{
		Name:      "Unfollow Accept",
		Recipient: actorID,
		Body:      response,
		OnSuccess: func() { telemetry.Increment("accept_responses", 1) },
		actors:    ai.remote,
		signer:    ai.signer,
	})

	message += " - success"
	w.WriteHeader(http.StatusOK)
}

// response serializes an Accept or Reject of object, sent by the inbox owner.
func (ai *ActivityInbox) response(responseType, remoteID string, object activity.Object) ([]byte, error) {
	act, err := activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) {
			o.Type(responseType).ID(fmt.Sprintf("%s#%s", ai.ownerID, uuid.NewString()))
		}).
		WithActor(func(a *activity.ActorBuilder) {
			a.WithBase(func(o *activity.ObjectBuilder) { o.ID(ai.ownerID) })
		}).
		Object(object).
		To(remoteID).
		Build()
	if err != nil {
		return nil, err
	}
	return activity.NewDocument(activity.DefaultContext(), act).Serialize()
}

func typeOf(o activity.Object) string {
	if o.Type == nil {
		return ""
	}
	return *o.Type
}

func idOf(o activity.Object) string {
	if o.ID == nil {
		return ""
	}
	return *o.ID
}

func actorIDOf(act activity.Activity) string {
	if act.Actor == nil {
		return ""
	}
	return idOf(act.Actor.Base)
}

func objectIDOf(act activity.Activity) string {
	if act.Object == nil {
		return ""
	}
	return idOf(*act.Object)
}

// writeDocument serializes a document into an http response.
func writeDocument[T any](w http.ResponseWriter, contentType string, doc activity.Document[T]) {
	b, err := doc.Serialize()
	if err != nil {
		telemetry.Error(err, "serializing document")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(b)
}
