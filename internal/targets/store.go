// Package targets keeps the tracker bridge's view of every known marker.
package targets

import (
	"sort"
	"sync"
	"time"

	"github.com/memelens/memelens/internal/tracking"
)

// TargetState is the last status reported for a target.
type TargetState struct {
	Target    tracking.Target `json:"target"`
	Status    tracking.Status `json:"status"`
	Info      string          `json:"info,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Order     int             `json:"order"`
}

// Event converts the state into a status event.
func (s *TargetState) Event() tracking.Event {
	return tracking.Event{
		Target: s.Target,
		Status: s.Status,
		Info:   s.Info,
		At:     s.UpdatedAt,
	}
}

type Store struct {
	mu        sync.RWMutex
	targets   map[string]*TargetState
	nextOrder int
}

func NewStore() *Store {
	return &Store{
		targets: make(map[string]*TargetState),
	}
}

func (s *Store) Get(id string) (*TargetState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.targets[id]
	if !ok {
		return nil, false
	}
	copy := *st
	return &copy, true
}

// GetAll returns copies of every target in registration order.
func (s *Store) GetAll() []*TargetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*TargetState, 0, len(s.targets))
	for _, st := range s.targets {
		copy := *st
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result
}

// Update stores state and reports whether the visible/lost classification
// or the status itself changed. A missing UpdatedAt is set to now.
func (s *Store) Update(state *TargetState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	changed := true
	if existing, ok := s.targets[state.Target.ID]; ok {
		state.Order = existing.Order
		changed = existing.Status != state.Status || existing.Info != state.Info
		if state.Target.Name == "" {
			state.Target.Name = existing.Target.Name
		}
	} else {
		state.Order = s.nextOrder
		s.nextOrder++
	}
	copy := *state
	s.targets[state.Target.ID] = &copy
	return changed
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, id)
}

// VisibleCount returns how many targets are currently tracked.
func (s *Store) VisibleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.targets {
		if st.Status.Visible() {
			count++
		}
	}
	return count
}
