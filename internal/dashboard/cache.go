package dashboard

import (
	"sync"
	"time"

	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
)

// PageState is what a session's last load of a page left behind: the view plus
// the mutable lists later actions operate on.
type PageState struct {
	View       View
	Pending    *workflow.PendingQueue
	Activities *workflow.ActivityList
	LoadedAt   time.Time
}

// NewPageState wraps a freshly loaded view.
func NewPageState(view View, decider workflow.Decider, events workflow.Publisher, loadedAt time.Time) *PageState {
	return &PageState{
		View:       view,
		Pending:    workflow.NewPendingQueue(decider, events, view.Pending),
		Activities: workflow.NewActivityList(view.Activities),
		LoadedAt:   loadedAt,
	}
}

// Snapshot returns the view with the current queue and list contents.
func (s *PageState) Snapshot() View {
	view := s.View
	if s.Pending != nil {
		view.Pending = s.Pending.Items()
	}
	if s.Activities != nil {
		view.Activities = s.Activities.Items()
	}
	view.computeMetrics()
	return view
}

// AnalyticsSnapshot returns the analytics the page was loaded with, if any.
func (s *PageState) AnalyticsSnapshot() *models.Analytics {
	return s.View.Analytics
}

// PageCache keeps per-session page state in memory. Nothing is shared between
// sessions.
type PageCache struct {
	mu      sync.Mutex
	entries map[string]map[string]*PageState
	ttl     time.Duration
	now     func() time.Time
}

// NewPageCache builds a cache whose entries expire after ttl.
func NewPageCache(ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PageCache{entries: make(map[string]map[string]*PageState), ttl: ttl, now: time.Now}
}

// Put stores the state of page for a session.
func (c *PageCache) Put(sessionID, page string, state *PageState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages, ok := c.entries[sessionID]
	if !ok {
		pages = make(map[string]*PageState)
		c.entries[sessionID] = pages
	}
	pages[page] = state
}

// Get returns the state of page for a session.
func (c *PageCache) Get(sessionID, page string) (*PageState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.entries[sessionID][page]
	if !ok {
		return nil, false
	}
	if c.now().Sub(state.LoadedAt) > c.ttl {
		delete(c.entries[sessionID], page)
		return nil, false
	}
	return state, true
}

// Drop forgets every page of a session.
func (c *PageCache) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *PageCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	now := c.now()
	for sessionID, pages := range c.entries {
		for page, state := range pages {
			if now.Sub(state.LoadedAt) > c.ttl {
				delete(pages, page)
				removed++
			}
		}
		if len(pages) == 0 {
			delete(c.entries, sessionID)
		}
	}
	return removed
}
