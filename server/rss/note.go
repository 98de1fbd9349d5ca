package rss

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/tkrehbiel/activitystreams/server/activity"
)

// PublicAddress is the special collection addressing everyone.
const PublicAddress = "https://www.w3.org/ns/activitystreams#Public"

// NoteID derives a stable object id under base for an item, so the same
// post always maps to the same Note.
func NoteID(base string, item Item) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), uuid.NewSHA1(uuid.NameSpaceURL, []byte(item.ID)))
}

// content renders an item as a short html announcement.
func content(item Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(item.Title))
	if item.URL != "" {
		u := html.EscapeString(item.URL)
		fmt.Fprintf(&b, `<p><a href="%s">%s</a></p>`, u, u)
	}
	if len(item.Hashtags) > 0 {
		tags := make([]string, len(item.Hashtags))
		for i, t := range item.Hashtags {
			tags[i] = "#" + html.EscapeString(t)
		}
		fmt.Fprintf(&b, "<p>%s</p>", strings.Join(tags, " "))
	}
	return b.String()
}

// Note builds the Note announcing an item, attributed to actorID.
func Note(id, actorID string, item Item) (activity.Object, error) {
	b := activity.NewNoteBuilder(item.Title, content(item)).
		ID(id).
		Published(item.Published).
		AttributedTo(activity.AttributedToObject(activity.NewObjectBuilder().ID(actorID).MustBuild()))
	if item.URL != "" {
		b.URL(item.URL)
	}
	return b.Build()
}

// Create wraps a Note in the Create activity delivered to followers.
func Create(note activity.Object, actorID string, to ...string) (activity.Activity, error) {
	if note.ID == nil {
		return activity.Activity{}, fmt.Errorf("note has no id")
	}
	return activity.NewActivityBuilder().
		WithBase(func(o *activity.ObjectBuilder) {
			o.Type(activity.CreateType).ID(*note.ID + "/activity")
			if note.Published != nil {
				o.Published(note.Published.Time)
			}
		}).
		WithActor(func(a *activity.ActorBuilder) {
			a.WithBase(func(o *activity.ObjectBuilder) { o.ID(actorID) })
		}).
		Object(note).
		To(append([]string{PublicAddress}, to...)...).
		Build()
}
