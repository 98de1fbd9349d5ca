package page

import (
	"fmt"
	"net/http"

	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

// ActorAccept matches the Accept headers of ActivityPub clients.
const ActorAccept = "application/(activity|ld)\\+json"

// actorPage serves a user's Actor document. The document never changes while
// the server runs, so it is serialized once in Init.
type actorPage struct {
	path     string
	rendered []byte
}

// NewActorPage returns a page serving the Actor built from the UserMetaData
// passed to Init.
func NewActorPage(path string) StaticPageHandler {
	return &actorPage{path: path}
}

func (p actorPage) Path() string {
	return p.path
}

func (p actorPage) Accept() string {
	return ActorAccept
}

func (p *actorPage) Init(meta any) error {
	umeta, ok := meta.(UserMetaData)
	if !ok {
		return fmt.Errorf("actor page needs user metadata, got %T", meta)
	}
	actor, err := umeta.Actor()
	if err != nil {
		return fmt.Errorf("building actor %s: %w", umeta.UserName, err)
	}
	b, err := activity.NewDocument(activity.DefaultContext(), actor).Serialize()
	if err != nil {
		return fmt.Errorf("serializing actor %s: %w", umeta.UserName, err)
	}
	p.rendered = b
	return nil
}

func (p actorPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	telemetry.Request(r, "ActorPage.ServeHTTP")
	telemetry.Increment("actor_requests", 1)
	if p.rendered == nil {
		telemetry.Log("no actor rendered for %s", p.path)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", activity.ContentType)
	w.Write(p.rendered)
}

var ProfilePage = StaticPage{
	Path:        "/profile/{username}", // must be set for each actor
	Accept:      "*/*",
	ContentType: "text/html",
	Template: `
<html>
<head>
<title>{{ .UserDisplayName | html }}</title>
</head>
<body>
<h1>{{ .UserDisplayName | html }}</h1>
{{ if .UserSummary }}<p>{{ .UserSummary | html }}</p>{{ end }}
<p>Latest activity from this account</p>
<ul>
	{{ range .LatestNotes }}
	<li><a href="{{ .URL | html }}">{{ .Title | html }}</a></li>
	{{ end }}
</ul>
</body>
</html>`,
}
