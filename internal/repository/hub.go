package repository

import "sync"

// changeHub routes change signals to the subscriptions they affect.
type changeHub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[*Subscription]struct{})}
}

func (h *changeHub) add(s *Subscription) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *changeHub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *changeHub) publish(collection Collection, ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.query.Collection == collection && s.query.OwnerID == ownerID {
			s.notify()
		}
	}
}

func (h *changeHub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.notify()
	}
}

func (h *changeHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
