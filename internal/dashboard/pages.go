package dashboard

import (
	"context"
	"time"

	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
)

// Pages loads dashboards and keeps what each session's last load left behind.
type Pages struct {
	aggregator *Aggregator
	cache      *PageCache
	decider    workflow.Decider
	events     workflow.Publisher
	now        func() time.Time
}

// NewPages builds the page service. decider backs the faculty pending queue.
func NewPages(aggregator *Aggregator, cache *PageCache, decider workflow.Decider, events workflow.Publisher) *Pages {
	if events == nil {
		events = workflow.NopPublisher{}
	}
	return &Pages{
		aggregator: aggregator,
		cache:      cache,
		decider:    decider,
		events:     events,
		now:        time.Now,
	}
}

// Load fetches the page fresh and replaces the session's cached state. page may
// be nil when nobody observes the loading flag.
func (p *Pages) Load(ctx context.Context, sess session.Session, page *Page, policy guard.Policy) (*PageState, error) {
	view, err := p.aggregator.Load(ctx, sess, page, policy)
	if err != nil {
		return nil, err
	}
	state := NewPageState(view, p.decider, p.events, p.now())
	p.cache.Put(sess.ID, policy.Name, state)
	return state, nil
}

// Current returns the session's cached state of the page, loading it on a miss.
func (p *Pages) Current(ctx context.Context, sess session.Session, policy guard.Policy) (*PageState, error) {
	if state, ok := p.cache.Get(sess.ID, policy.Name); ok {
		return state, nil
	}
	return p.Load(ctx, sess, nil, policy)
}

// Forget discards every cached page of a session.
func (p *Pages) Forget(sessionID string) {
	p.cache.Drop(sessionID)
}
