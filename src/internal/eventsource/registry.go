package eventsource

import (
	"context"
	"fmt"
	"sync"
)

// TabRegistry is the tracker's view of the browser's tabs, kept current by
// the messages the extension forwards.
type TabRegistry struct {
	mu     sync.RWMutex
	urls   map[int]string
	active int
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{urls: make(map[int]string)}
}

// Activate records tabID as focused, updating its URL when one is given.
func (r *TabRegistry) Activate(tabID int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = tabID
	if url != "" {
		r.urls[tabID] = url
	}
}

// Update stores a new URL for tabID and reports whether the URL changed.
func (r *TabRegistry) Update(tabID int, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.urls[tabID] == url {
		return false
	}
	r.urls[tabID] = url
	return true
}

func (r *TabRegistry) Remove(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.urls, tabID)
	if r.active == tabID {
		r.active = 0
	}
}

func (r *TabRegistry) IsActive(tabID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != 0 && r.active == tabID
}

func (r *TabRegistry) TabURL(_ context.Context, tabID int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.urls[tabID]
	if !ok || url == "" {
		return "", fmt.Errorf("tab %d has no known url", tabID)
	}
	return url, nil
}

func (r *TabRegistry) ActiveTab(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == 0 {
		return 0, fmt.Errorf("no focused tab")
	}
	return r.active, nil
}
