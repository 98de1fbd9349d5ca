package server

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tkrehbiel/activitystreams/server/activity"
	"github.com/tkrehbiel/activitystreams/server/keys"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
)

// OutputPipeline is an asynchronous output pipeline for sending http requests.
// Deliveries are queued and sent one at a time by Run, with retries.
// Once Run returns, further deliveries are dropped.
type OutputPipeline struct {
	client   *retryablehttp.Client
	pipeline chan Deliverable
	pending  sync.WaitGroup

	queueing sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
}

// Deliverable is one outgoing request. Prepare is called on the pipeline
// goroutine, so it may block on lookups.
type Deliverable interface {
	fmt.Stringer
	Prepare(ctx context.Context) (*retryablehttp.Request, error)
	Receive(resp *http.Response)
}

func NewPipeline(retries int) *OutputPipeline {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 30 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = retryablehttp.LeveledLogger(telemetry.Leveled{})
	return &OutputPipeline{
		client:   client,
		pipeline: make(chan Deliverable, 64),
		done:     make(chan struct{}),
	}
}

// Client is a plain http.Client with the pipeline's retry behavior.
func (p *OutputPipeline) Client() *http.Client {
	return p.client.StandardClient()
}

// Queue adds a delivery. It blocks when the queue is full, and drops the
// delivery when the pipeline has stopped.
func (p *OutputPipeline) Queue(d Deliverable) {
	p.queueing.RLock()
	defer p.queueing.RUnlock()
	select {
	case <-p.done:
		p.drop(d)
		return
	default:
	}
	p.pending.Add(1)
	telemetry.Increment("deliveries_queued", 1)
	select {
	case p.pipeline <- d:
	case <-p.done:
		p.pending.Done()
		p.drop(d)
	}
}

// Flush waits until every queued delivery has been handled or dropped.
func (p *OutputPipeline) Flush() {
	p.pending.Wait()
}

// Run sends queued deliveries until the context ends, then drops whatever
// is still queued. Expected to be run in a goroutine.
func (p *OutputPipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.stop()
			return ctx.Err()
		case d := <-p.pipeline:
			p.deliver(ctx, d)
		}
	}
}

func (p *OutputPipeline) stop() {
	p.stopOnce.Do(func() { close(p.done) })
	// wait out senders that started before done was closed
	p.queueing.Lock()
	defer p.queueing.Unlock()
	for {
		select {
		case d := <-p.pipeline:
			p.drop(d)
			p.pending.Done()
		default:
			return
		}
	}
}

func (p *OutputPipeline) drop(d Deliverable) {
	telemetry.Log("pipeline stopped, dropping %s", d)
	telemetry.Increment("deliveries_dropped", 1)
}

func (p *OutputPipeline) deliver(ctx context.Context, d Deliverable) {
	defer p.pending.Done()
	r, err := d.Prepare(ctx)
	if err != nil {
		telemetry.Error(err, "preparing %s", d)
		return
	}
	resp, err := p.client.Do(r.WithContext(ctx))
	if err != nil {
		telemetry.Error(err, "delivering %s", d)
		telemetry.Increment("deliveries_failed", 1)
		return
	}
	defer resp.Body.Close()
	telemetry.Trace("delivered %s: %d", d, resp.StatusCode)
	telemetry.Increment("deliveries_sent", 1)
	d.Receive(resp)
}

// signer holds the key a local user signs outgoing requests with.
type signer struct {
	key   crypto.PrivateKey
	keyID string
}

// documentRequest creates a POST of serialized document bytes to an inbox,
// signed when a key is available.
func documentRequest(ctx context.Context, inbox string, body []byte, s *signer) (*retryablehttp.Request, error) {
	r, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", activity.ContentTypeLD)
	r.Header.Set("Accept", activity.ContentType)
	if s != nil && s.key != nil {
		if err := keys.Sign(r.Request, body, s.key, s.keyID); err != nil {
			return nil, fmt.Errorf("signing request to %s: %w", inbox, err)
		}
	}
	return r, nil
}

// actorLookup finds remote actors.
type actorLookup interface {
	Actor(ctx context.Context, id string) (activity.Actor, error)
}

// DocumentDelivery posts a serialized document to an inbox. When the inbox
// is not known, it is looked up from the recipient actor first.
type DocumentDelivery struct {
	Name      string
	Inbox     string
	Recipient string
	Body      []byte
	OnSuccess func()

	actors actorLookup
	signer *signer
}

func (d *DocumentDelivery) String() string {
	target := d.Inbox
	if target == "" {
		target = d.Recipient
	}
	return fmt.Sprintf("%s to %s", d.Name, target)
}

func (d *DocumentDelivery) Prepare(ctx context.Context) (*retryablehttp.Request, error) {
	inbox := d.Inbox
	if inbox == "" {
		if d.actors == nil {
			return nil, fmt.Errorf("no inbox for %s", d.Recipient)
		}
		remote, err := d.actors.Actor(ctx, d.Recipient)
		if err != nil {
			return nil, fmt.Errorf("looking up remote actor: %w", err)
		}
		if remote.Inbox == nil || *remote.Inbox == "" {
			return nil, fmt.Errorf("remote actor %s has no inbox", d.Recipient)
		}
		inbox = *remote.Inbox
	}
	return documentRequest(ctx, inbox, d.Body, d.signer)
}

func (d *DocumentDelivery) Receive(resp *http.Response) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if d.OnSuccess != nil {
			d.OnSuccess()
		}
		return
	}
	telemetry.Log("delivery %s rejected with status %d", d, resp.StatusCode)
}
