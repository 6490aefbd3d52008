package broadcast

import (
	"sync"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

const subscriberBuffer = 64

// Hub fans progress events out to every subscribed page.
// Publish never blocks: a subscriber whose buffer is full loses its oldest
// queued events, so the newest event (usually CACHE_COMPLETE or CACHE_ERROR) always lands.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan entity.ProgressEvent]struct{}
	last   *entity.ProgressEvent
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan entity.ProgressEvent]struct{}),
	}
}

func (h *Hub) Publish(e entity.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.last = &e
	for ch := range h.subs {
		deliver(ch, e)
	}
}

// deliver must be called with h.mu held; the hub is the only sender on ch.
func deliver(ch chan entity.ProgressEvent, e entity.ProgressEvent) {
	for {
		select {
		case ch <- e:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe registers a listener. The most recent event, if any, is delivered first.
// The returned function unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan entity.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan entity.ProgressEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	if h.last != nil {
		ch <- *h.last
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
