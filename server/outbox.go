package server

import (
	"context"
	"net/http"
	"time"

	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/data"
	"github.com/tkrehbiel/activitystreams/server/page"
	"github.com/tkrehbiel/activitystreams/server/rss"
	"github.com/tkrehbiel/activitystreams/server/storage"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

const latestCount = 10

type ActivityOutbox struct {
	username   string
	id         string
	ownerID    string // id of the actor publishing through the outbox
	objectsURL string // base of generated note ids
	rssURL     string
	notes      data.Collection
	followers  storage.Followers
	inboxes    []string // delivered to regardless of followers
	actors     actorLookup
	pipeline   *OutputPipeline
	signer     *signer
	client     *http.Client
}

// NewItem is called when a new RSS item is detected by the watcher
func (ao *ActivityOutbox) NewItem(item rss.Item) {
	telemetry.Trace("new item [%s]", item.Title)
	telemetry.Increment("rss_newitems", 1)
	ctx := context.Background()

	note, err := rss.Note(rss.NoteID(ao.objectsURL, item), ao.ownerID, item)
	if err != nil {
		telemetry.Error(err, "building note for [%s]", item.URL)
		return
	}
	rec, err := data.NewRecord(activity.NewDocument(activity.DefaultContext(), note))
	if err != nil {
		telemetry.Error(err, "recording note for [%s]", item.URL)
		return
	}
	if err := ao.notes.Upsert(ctx, rec); err != nil {
		telemetry.Error(err, "updating database")
		return
	}

	create, err := rss.Create(note, ao.ownerID, ao.followersURL())
	if err != nil {
		telemetry.Error(err, "building create for [%s]", item.URL)
		return
	}
	body, err := activity.NewDocument(activity.DefaultContext(), create).Serialize()
	if err != nil {
		telemetry.Error(err, "serializing create for [%s]", item.URL)
		return
	}
	ao.deliver(body)
}

func (ao *ActivityOutbox) followersURL() string {
	return page.UserMetaData{UserID: ao.ownerID}.FollowersURL()
}

// deliver queues a document for every accepted follower and every
// configured inbox.
func (ao *ActivityOutbox) deliver(body []byte) {
	if ao.pipeline == nil {
		return
	}
	for _, inbox := range ao.inboxes {
		ao.pipeline.Queue(&DocumentDelivery{
			Name:   "Create",
			Inbox:  inbox,
			Body:   body,
			signer: ao.signer,
		})
	}
	if ao.followers == nil {
		return
	}
	followers, err := ao.followers.GetFollowers()
	if err != nil {
		telemetry.Error(err, "database error")
		return
	}
	for _, f := range followers {
		if f.RequestStatus != storage.FollowAccepted {
			continue
		}
		ao.pipeline.Queue(&DocumentDelivery{
			Name:      "Create",
			Recipient: f.ID,
			Body:      body,
			OnSuccess: func() { telemetry.Increment("creates_delivered", 1) },
			actors:    ao.actors,
			signer:    ao.signer,
		})
	}
}

// StatusCode is called by the RSS watcher to report the latest fetch status code
func (ao *ActivityOutbox) StatusCode(code int) {
	telemetry.Trace("rss feed return code [%d]", code)
	telemetry.Increment("rss_fetches", 1)
}

// GetLatestNotes returns up to n stored notes, newest first.
func (ao *ActivityOutbox) GetLatestNotes(ctx context.Context, n int) []activity.Object {
	records, err := ao.notes.SelectLatest(ctx, n)
	if err != nil {
		telemetry.Error(err, "selecting from database")
		return nil
	}

	notes := make([]activity.Object, 0, len(records))
	for _, rec := range records {
		doc, err := data.Decode[activity.Object](rec)
		if err != nil {
			telemetry.Error(err, "decoding stored note [%s]", rec.ID)
			continue
		}
		notes = append(notes, doc.Payload)
	}
	return notes
}

// LatestLinks summarizes the latest notes for html pages.
func (ao *ActivityOutbox) LatestLinks(ctx context.Context, n int) []page.NoteLink {
	notes := ao.GetLatestNotes(ctx, n)
	links := make([]page.NoteLink, 0, len(notes))
	for _, note := range notes {
		var link page.NoteLink
		if note.URL != nil {
			link.URL = *note.URL
		}
		if note.Name != nil {
			link.Title = *note.Name
		}
		links = append(links, link)
	}
	return links
}

// WatchRSS watches an RSS feed for new items and saves them as ActivityPub objects
func (ao *ActivityOutbox) WatchRSS(ctx context.Context) {
	watcher := rss.NewFeedWatcher(ao.rssURL, ao.client, ao)

	// Load previously-stored items
	records, err := ao.notes.SelectAll(ctx)
	if err != nil {
		telemetry.Error(err, "loading stored notes")
	}
	for _, rec := range records {
		doc, err := data.Decode[activity.Object](rec)
		if err != nil || doc.Payload.URL == nil {
			continue
		}
		// Items are keyed by their link, which notes keep as url.
		watcher.AddKnown(rss.Item{
			ID:        *doc.Payload.URL,
			Published: rec.Published,
			Updated:   rec.Published,
		})
	}

	telemetry.Log("watching %s", ao.rssURL)
	watcher.Watch(ctx, 5*time.Minute)
}

func (ao *ActivityOutbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	telemetry.Request(r, "ActivityOutbox.ServeHTTP %s", ao.username)
	telemetry.Increment("get_requests", 1)

	notes := ao.GetLatestNotes(r.Context(), latestCount)

	collection, err := activity.NewOrderedCollectionBuilder[activity.Object]().
		WithBase(func(o *activity.ObjectBuilder) { o.ID(ao.id) }).
		Items(notes...).
		Build()
	if err != nil {
		telemetry.Error(err, "building collection")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeDocument(w, activity.ContentType, activity.NewDocument(activity.DefaultContext(), collection))
}
