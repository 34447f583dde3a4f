package tracking

import "testing"

func TestFeedPublishReachesSubscribersInOrder(t *testing.T) {
	f := NewFeed()
	var got []string
	f.Subscribe(func(ev Event) { got = append(got, "a:"+ev.Target.ID) })
	f.Subscribe(func(ev Event) { got = append(got, "b:"+ev.Target.ID) })

	n := f.Publish(Event{Target: Target{ID: "m1"}, Status: Tracked})
	if n != 2 {
		t.Fatalf("Publish delivered to %d, want 2", n)
	}
	if len(got) != 2 || got[0] != "a:m1" || got[1] != "b:m1" {
		t.Errorf("delivery order = %v", got)
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	f := NewFeed()
	calls := 0
	sub := f.Subscribe(func(Event) { calls++ })

	f.Publish(Event{Status: Tracked})
	sub.Close()
	f.Publish(Event{Status: NoPose})

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d after close, want 0", f.Len())
	}
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe(func(Event) {})
	other := f.Subscribe(func(Event) {})

	sub.Close()
	sub.Close()

	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
	other.Close()

	var nilSub *Subscription
	nilSub.Close() // must not panic
}

func TestPublishWithoutSubscribers(t *testing.T) {
	f := NewFeed()
	if n := f.Publish(Event{Status: Tracked}); n != 0 {
		t.Errorf("Publish() = %d, want 0", n)
	}
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	f := NewFeed()
	var sub *Subscription
	calls := 0
	sub = f.Subscribe(func(Event) {
		calls++
		sub.Close()
	})

	f.Publish(Event{})
	f.Publish(Event{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
