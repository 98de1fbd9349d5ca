package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/data"
	"github.com/tkrehbiel/activitystreams/server/keys"
	"github.com/tkrehbiel/activitystreams/server/page"
	"github.com/tkrehbiel/activitystreams/server/storage"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

type ActivityService struct {
	Config   Config
	Server   http.Server
	router   *mux.Router
	meta     page.MetaData
	store    storage.Database
	resolver *keys.Resolver
	pipeline *OutputPipeline
	users    []*ActivityUser

	cancel  context.CancelFunc
	running sync.WaitGroup
}

type ActivityUser struct {
	name     string
	meta     page.UserMetaData
	notes    data.Collection
	received data.Collection
	outbox   *ActivityOutbox
	inbox    *ActivityInbox
}

func (s *ActivityService) addHandlers() {
	s.addPageHandler(page.NewStaticPage(page.HomePage), s.meta)
	s.router.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/o/{id}", s.objectHandler).Methods(http.MethodGet)

	for _, user := range s.users {
		user := user
		s.addPageHandler(page.NewActorPage(fmt.Sprintf("/%s/%s", page.SubPath, user.name)), user.meta)

		pg := page.ProfilePage // copy
		pg.Path = fmt.Sprintf("/profile/%s", user.name)
		profile, err := page.NewDynamicPage(pg, func() any {
			meta := user.meta
			meta.LatestNotes = user.outbox.LatestLinks(context.Background(), latestCount)
			return meta
		})
		if err != nil {
			telemetry.Error(err, "profile page for %s", user.name)
		} else {
			s.router.Handle(profile.Path(), profile).Methods(http.MethodGet)
		}

		outpath := fmt.Sprintf("/%s/%s/outbox", page.SubPath, user.name)
		s.router.HandleFunc(outpath, user.outbox.ServeHTTP).Methods(http.MethodGet)

		inpath := fmt.Sprintf("/%s/%s/inbox", page.SubPath, user.name)
		s.router.HandleFunc(inpath, RequestLogger{Handler: user.inbox.GetHTTP}.ServeHTTP).Methods(http.MethodGet)
		s.router.HandleFunc(inpath, RequestLogger{Handler: user.inbox.PostHTTP}.ServeHTTP).Methods(http.MethodPost)
	}
}

func (s *ActivityService) addPageHandler(pg page.StaticPageHandler, meta any) {
	if err := pg.Init(meta); err != nil {
		telemetry.Error(err, "rendering page %s", pg.Path())
	}
	route := s.router.Handle(pg.Path(), pg).Methods(http.MethodGet)
	if !s.Config.Server.AcceptAll && pg.Accept() != "" && pg.Accept() != "*/*" {
		route.HeadersRegexp("Accept", pg.Accept())
	}
}

// objectHandler serves stored objects by id from every user's notes.
func (s *ActivityService) objectHandler(w http.ResponseWriter, r *http.Request) {
	telemetry.Request(r, "objectHandler")
	telemetry.Increment("object_requests", 1)
	id, err := url.JoinPath(s.meta.ObjectsURL(), mux.Vars(r)["id"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	for _, user := range s.users {
		rec, err := user.notes.Find(r.Context(), id)
		if err != nil {
			telemetry.Error(err, "database error")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if rec != nil {
			w.Header().Set("Content-Type", activity.ContentType)
			w.Write(rec.JSON)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

// Handler is the router serving every endpoint.
func (s *ActivityService) Handler() http.Handler {
	return s.router
}

// Start runs the delivery pipeline, the feed watchers and the http listener
// in the background.
func (s *ActivityService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.pipeline.Run(ctx)
	}()

	// Spawn RSS feed watcher goroutines
	for _, user := range s.users {
		if user.outbox.rssURL == "" {
			continue
		}
		s.running.Add(1)
		go func(u *ActivityUser) {
			defer s.running.Done()
			u.outbox.WatchRSS(ctx)
		}(user)
	}

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error(err, "listener stopped")
		}
	}()
}

func (s *ActivityService) ListenAndServe() error {
	if s.Config.Server.useTLS() {
		telemetry.Log("tls listener starting on port %d", s.Config.Server.Port)
		return s.Server.ListenAndServeTLS(s.Config.Server.Certificate, s.Config.Server.PrivateKey)
	}
	telemetry.Log("http listener starting on port %d", s.Config.Server.Port)
	return s.Server.ListenAndServe()
}

// Stop shuts down the listener and background work, then closes storage.
func (s *ActivityService) Stop(ctx context.Context) {
	if err := s.Server.Shutdown(ctx); err != nil {
		telemetry.Error(err, "shutting down listener")
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.running.Wait()
	s.Close()
}

// Close anything related to the service before exiting
func (s *ActivityService) Close() {
	s.resolver.Stop()
	for _, user := range s.users {
		user.notes.Close()
		user.received.Close()
	}
	s.store.Close()
	telemetry.LogCounters()
}

// NewService creates an http service to listen for ActivityPub requests
func NewService(cfg Config) (*ActivityService, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing url [%s]: %w", cfg.URL, err)
	}

	svc := &ActivityService{
		Config:   cfg,
		router:   mux.NewRouter(),
		meta:     page.NewMetaData(u),
		store:    storage.NewDatabase(cfg.Server.database()),
		pipeline: NewPipeline(cfg.Server.DeliveryRetries),
	}
	if err := svc.store.Open(); err != nil {
		return nil, fmt.Errorf("opening sqlite database [%s]: %w", cfg.Server.database(), err)
	}
	svc.resolver = keys.NewResolver(svc.store, svc.pipeline.Client())

	// configure inboxes and outboxes
	for _, usercfg := range cfg.Users {
		user, err := svc.newUser(usercfg)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.users = append(svc.users, user)
	}

	// configure web handlers
	svc.addHandlers()

	svc.Server = http.Server{
		Handler:      svc.router,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
	return svc, nil
}

func (s *ActivityService) newUser(usercfg userConfig) (*ActivityUser, error) {
	user := &ActivityUser{
		name:     usercfg.Name,
		meta:     s.meta.NewUserMetaData(usercfg.Name),
		notes:    data.NewSQLiteCollection("outbox:"+usercfg.Name, s.Config.Server.database()),
		received: data.NewSQLiteCollection("inbox:"+usercfg.Name, s.Config.Server.database()),
	}
	user.meta.UserDisplayName = usercfg.DisplayName
	user.meta.UserSummary = usercfg.Summary
	if usercfg.Type != "" {
		user.meta.UserType = usercfg.Type
	}

	if usercfg.PubKeyFile != "" {
		pem, err := keys.LoadPublicKeyPEM(usercfg.PubKeyFile)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", usercfg.Name, err)
		}
		user.meta.PublicKeyPem = pem
	}
	var sign *signer
	if !s.Config.Server.SendUnsigned && usercfg.PrivKeyFile != "" {
		key, err := keys.LoadPrivateKey(usercfg.PrivKeyFile)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", usercfg.Name, err)
		}
		sign = &signer{key: key, keyID: user.meta.PublicKeyID()}
	}

	if err := user.notes.Open(); err != nil {
		return nil, fmt.Errorf("opening notes of %s: %w", usercfg.Name, err)
	}
	if err := user.received.Open(); err != nil {
		user.notes.Close()
		return nil, fmt.Errorf("opening inbox of %s: %w", usercfg.Name, err)
	}

	followers := s.store.FollowersOf(usercfg.Name)
	user.outbox = &ActivityOutbox{
		username:   usercfg.Name,
		id:         user.meta.OutboxURL(),
		ownerID:    user.meta.UserID,
		objectsURL: s.meta.ObjectsURL(),
		rssURL:     usercfg.SourceURL,
		notes:      user.notes,
		followers:  followers,
		inboxes:    usercfg.Inboxes,
		actors:     s.resolver,
		pipeline:   s.pipeline,
		signer:     sign,
		client:     s.pipeline.Client(),
	}
	user.inbox = &ActivityInbox{
		id:             user.meta.InboxURL(),
		ownerID:        user.meta.UserID,
		followers:      followers,
		received:       user.received,
		remote:         s.resolver,
		pipeline:       s.pipeline,
		signer:         sign,
		acceptUnsigned: s.Config.Server.ReceiveUnsigned,
		maxFollowers:   s.Config.Server.MaxFollowers,
	}
	return user, nil
}

type RequestLogger struct {
	Handler http.HandlerFunc
}

func (rl RequestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	headers := make([]string, 0)
	for k, v := range r.Header {
		s := fmt.Sprintf("%s: %s", k, strings.Join(v, ", "))
		headers = append(headers, s)
	}
	telemetry.Trace("%s", strings.Join(headers, " | "))

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		telemetry.Error(err, "error reading body")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(buf) > 0 {
		telemetry.Trace("%s", buf)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(buf))
	rl.Handler(w, r)
}
