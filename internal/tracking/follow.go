package tracking

import "sync"

// Follower narrows a multi-target source down to a single marker. With a
// fixed ID only that marker's events pass. With an empty ID each
// subscription locks onto the first marker it sees become visible and keeps
// it until the subscription is closed.
type Follower struct {
	src Source
	id  string
}

// Follow wraps src so subscribers only hear about one marker.
func Follow(src Source, id string) *Follower {
	return &Follower{src: src, id: id}
}

func (f *Follower) Subscribe(h Handler) *Subscription {
	var (
		mu     sync.Mutex
		locked = f.id
	)
	return f.src.Subscribe(func(ev Event) {
		mu.Lock()
		if locked == "" {
			if !ev.Status.Visible() {
				mu.Unlock()
				return
			}
			locked = ev.Target.ID
		}
		match := ev.Target.ID == locked
		mu.Unlock()
		if match {
			h(ev)
		}
	})
}
