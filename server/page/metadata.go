package page

import (
	"fmt"
	"net/url"

	"github.com/tkrehbiel/activitystreams/server/activity"
)

// SubPath is the path prefix of actor endpoints.
const SubPath = "a"

// MetaData contains server information typically used in templates
type MetaData struct {
	URL      string // full server URL with scheme, host, port
	Scheme   string // http or https
	HostName string // server hostname
	Port     int    // server port
}

// These functions set the base paths for endpoints

// ActorURL gets an ActivtyPub Actor ID and endpoint URL
func (m MetaData) ActorURL(name string) string {
	s, _ := url.JoinPath(m.URL, SubPath, name)
	return s
}

// ProfileURL gets an HTML profile page for a user name
func (m MetaData) ProfileURL(name string) string {
	s, _ := url.JoinPath(m.URL, "profile", name)
	return s
}

// ObjectsURL is the base of stored object ids.
func (m MetaData) ObjectsURL() string {
	s, _ := url.JoinPath(m.URL, "o")
	return s
}

func (m MetaData) NewUserMetaData(name string) UserMetaData {
	return UserMetaData{
		MetaData:       m,
		UserName:       name,
		UserID:         m.ActorURL(name),
		UserProfileURL: m.ProfileURL(name),
		UserType:       activity.PersonType,
	}
}

func NewMetaData(u *url.URL) MetaData {
	return MetaData{
		URL:      u.String(),
		Scheme:   u.Scheme,
		HostName: u.Hostname(),
	}
}

// NoteLink is a short reference to a published note for html pages.
type NoteLink struct {
	URL   string
	Title string
}

// UserMetaData contains user information typically used in templates
type UserMetaData struct {
	MetaData
	UserName        string // Plain undecorated username
	UserID          string // ActivityPub user ID (an URL for application/json+activity)
	UserProfileURL  string // HTML user profile page (an URL)
	UserDisplayName string
	UserSummary     string
	UserType        string // ActivityPub Actor type (Person, Organization, etc.)
	PublicKeyPem    string
	AvatarURL       string
	AvatarWidth     uint
	AvatarHeight    uint
	LatestNotes     []NoteLink
}

func (m UserMetaData) InboxURL() string {
	s, _ := url.JoinPath(m.UserID, "inbox")
	return s
}

func (m UserMetaData) OutboxURL() string {
	s, _ := url.JoinPath(m.UserID, "outbox")
	return s
}

func (m UserMetaData) FollowersURL() string {
	s, _ := url.JoinPath(m.UserID, "followers")
	return s
}

func (m UserMetaData) FollowingURL() string {
	s, _ := url.JoinPath(m.UserID, "following")
	return s
}

// PublicKeyID is the id remote servers see in signatures from this user.
func (m UserMetaData) PublicKeyID() string {
	return fmt.Sprintf("%s#main-key", m.UserID)
}

// Actor builds the ActivityPub actor describing the user.
func (m UserMetaData) Actor() (activity.Actor, error) {
	b := activity.NewActorBuilderOfType(m.UserType).
		WithBase(func(o *activity.ObjectBuilder) {
			o.ID(m.UserID).URL(m.UserProfileURL)
			if m.UserDisplayName != "" {
				o.Name(m.UserDisplayName)
			}
			if m.UserSummary != "" {
				o.Summary(m.UserSummary)
			}
			if m.AvatarURL != "" {
				o.WithImage(func(l *activity.LinkBuilder) {
					l.Type(activity.ImageType).Href(m.AvatarURL)
					if m.AvatarWidth > 0 && m.AvatarHeight > 0 {
						l.Width(m.AvatarWidth).Height(m.AvatarHeight)
					}
				})
			}
		}).
		PreferredUsername(m.UserName).
		Inbox(m.InboxURL()).
		Outbox(m.OutboxURL()).
		Followers(m.FollowersURL()).
		Following(m.FollowingURL())
	if m.PublicKeyPem != "" {
		b.PublicKey(activity.PublicKeyInfo{
			ID:           m.PublicKeyID(),
			Owner:        m.UserID,
			PublicKeyPem: m.PublicKeyPem,
		})
	}
	return b.Build()
}
