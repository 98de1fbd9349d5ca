package keys

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/storage"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

const maxActorBytes = 1 << 20

// Resolver finds remote actors by id. Lookups go to an in-memory cache,
// then the actor store, then the actor's own URL.
type Resolver struct {
	cache  *ccache.Cache[activity.Actor]
	store  storage.Actors
	client *http.Client
	ttl    time.Duration
}

func NewResolver(store storage.Actors, client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{
		cache:  ccache.New(ccache.Configure[activity.Actor]().MaxSize(1000)),
		store:  store,
		client: client,
		ttl:    time.Hour,
	}
}

func (r *Resolver) Stop() {
	r.cache.Stop()
}

// Actor returns the actor document for an actor id.
func (r *Resolver) Actor(ctx context.Context, id string) (activity.Actor, error) {
	if item := r.cache.Get(id); item != nil && !item.Expired() {
		telemetry.Increment("actor_cache_hits", 1)
		return item.Value(), nil
	}

	if r.store != nil {
		stored, err := r.store.FindActor(id)
		if err != nil {
			telemetry.Error(err, "finding stored actor [%s]", id)
		} else if stored != nil && time.Since(stored.FetchedAt) < r.ttl {
			doc, err := activity.ParseDocument[activity.Actor]([]byte(stored.Source))
			if err == nil {
				r.cache.Set(id, doc.Payload, r.ttl)
				return doc.Payload, nil
			}
			telemetry.Error(err, "parsing stored actor [%s]", id)
		}
	}

	doc, raw, err := r.fetch(ctx, id)
	if err != nil {
		return activity.Actor{}, err
	}
	r.cache.Set(id, doc.Payload, r.ttl)
	if r.store != nil {
		saved := &storage.Actor{ID: id, Source: string(raw), FetchedAt: time.Now().UTC()}
		if doc.Payload.Base.Name != nil {
			saved.DisplayName = *doc.Payload.Base.Name
		}
		if u, err := url.Parse(id); err == nil {
			saved.Server = u.Host
		}
		if err := r.store.SaveActor(saved); err != nil {
			telemetry.Error(err, "saving actor [%s]", id)
		}
	}
	return doc.Payload, nil
}

func (r *Resolver) fetch(ctx context.Context, id string) (activity.Document[activity.Actor], []byte, error) {
	telemetry.Increment("actor_fetches", 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return activity.Document[activity.Actor]{}, nil, fmt.Errorf("fetching actor %s: %w", id, err)
	}
	req.Header.Set("Accept", activity.ContentType)
	resp, err := r.client.Do(req)
	if err != nil {
		return activity.Document[activity.Actor]{}, nil, fmt.Errorf("fetching actor %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return activity.Document[activity.Actor]{}, nil, fmt.Errorf("fetching actor %s: status %d", id, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxActorBytes))
	if err != nil {
		return activity.Document[activity.Actor]{}, nil, fmt.Errorf("reading actor %s: %w", id, err)
	}
	doc, err := activity.ParseDocument[activity.Actor](raw)
	if err != nil {
		return activity.Document[activity.Actor]{}, nil, fmt.Errorf("fetching actor %s: %w", id, err)
	}
	return doc, raw, nil
}

// PublicKey resolves a key id such as https://host/users/bob#main-key to
// the key published by its owner.
func (r *Resolver) PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	u, err := url.Parse(keyID)
	if err != nil {
		return nil, &KeyFormatError{KeyID: keyID, Err: err}
	}
	u.Fragment = ""
	actor, err := r.Actor(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if actor.PublicKey != nil && actor.PublicKey.ID != "" && actor.PublicKey.ID != keyID {
		return nil, &KeyFormatError{KeyID: keyID, Err: fmt.Errorf("actor publishes key %s", actor.PublicKey.ID)}
	}
	return PublicKey(actor)
}
