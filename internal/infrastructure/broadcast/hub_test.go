package broadcast

import (
	"testing"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubA()
	defer unsubB()

	h.Publish(entity.NewProgressEvent(40, "downloading"))

	for _, ch := range []<-chan entity.ProgressEvent{a, b} {
		e := <-ch
		if e.Type != entity.EventProgress || *e.Progress != 40 {
			t.Fatalf("unexpected event %+v", e)
		}
	}
}

func TestLateSubscriberGetsLastEvent(t *testing.T) {
	h := NewHub()
	h.Publish(entity.NewProgressEvent(10, "a"))
	h.Publish(entity.NewCompleteEvent("done"))

	ch, unsub := h.Subscribe()
	defer unsub()

	e := <-ch
	if e.Type != entity.EventComplete {
		t.Fatalf("expected last event to be replayed, got %+v", e)
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	_, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer*3; i++ {
		h.Publish(entity.NewProgressEvent(i, "x"))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Subscribers())
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	h.Close()
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}

	late, _ := h.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribing after Close should yield a closed channel")
	}
	h.Publish(entity.NewCompleteEvent("ignored"))
}

func TestFullBufferKeepsTerminalEvent(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+36; i++ {
		h.Publish(entity.NewProgressEvent(i%100, "downloading"))
	}
	h.Publish(entity.NewCompleteEvent("done"))

	var (
		last     entity.ProgressEvent
		received int
	)
	for len(ch) > 0 {
		last = <-ch
		received++
	}

	if received != subscriberBuffer {
		t.Fatalf("expected a full buffer of %d events, got %d", subscriberBuffer, received)
	}
	if last.Type != entity.EventComplete {
		t.Fatalf("expected CACHE_COMPLETE last, got %+v", last)
	}
}

func TestFullBufferKeepsNewestProgressInOrder(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	total := subscriberBuffer * 2
	for i := 0; i < total; i++ {
		h.Publish(entity.NewProgressEvent(i, "downloading"))
	}

	first := <-ch
	if *first.Progress != total-subscriberBuffer {
		t.Fatalf("expected oldest kept event %d, got %d", total-subscriberBuffer, *first.Progress)
	}
	prev := *first.Progress
	for len(ch) > 0 {
		e := <-ch
		if *e.Progress != prev+1 {
			t.Fatalf("events out of order: %d after %d", *e.Progress, prev)
		}
		prev = *e.Progress
	}
	if prev != total-1 {
		t.Fatalf("expected newest event %d, got %d", total-1, prev)
	}
}
