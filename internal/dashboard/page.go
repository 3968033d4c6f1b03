package dashboard

import "sync"

// Page holds the loading flag of one rendered dashboard page.
type Page struct {
	Name string

	mu       sync.Mutex
	loading  bool
	observer func(loading bool)
}

// NewPage builds a page. observer, when set, is called on every flag change.
func NewPage(name string, observer func(loading bool)) *Page {
	return &Page{Name: name, observer: observer}
}

// SetLoading updates the flag.
func (p *Page) SetLoading(loading bool) {
	p.mu.Lock()
	changed := p.loading != loading
	p.loading = loading
	observer := p.observer
	p.mu.Unlock()

	if changed && observer != nil {
		observer(loading)
	}
}

// Loading reports whether a load is in flight.
func (p *Page) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}
