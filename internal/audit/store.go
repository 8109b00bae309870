package audit

import (
	"sort"
	"sync"
	"time"
)

// maxEvents is the in-memory retention cap; oldest events are evicted FIFO
// once exceeded. Durable history lives in the JSONL files.
const maxEvents = 10000

// store is an in-memory ring of recent audit events, safe for concurrent use.
type store struct {
	mu     sync.RWMutex
	events []Event
}

func newStore() *store {
	return &store{events: make([]Event, 0, maxEvents)}
}

// append adds e, evicting the oldest event if the cap is exceeded.
func (s *store) append(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Filter narrows a query over stored events. Zero-value fields are ignored.
type Filter struct {
	EventType     string
	ControlFamily ControlFamily
	ActorNode     string
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
}

// query returns events matching f, capped at f.Limit (0 means no cap). An
// unfiltered query (f's selector fields all zero) preserves insertion order;
// once any index selector is applied, the remainder is newest-first as a
// post-filter step (spec §4.3: "query({}) returns events in insertion order,
// newest sort is a post-filter").
func (s *store) query(f Filter) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexed := f.EventType != "" || f.ControlFamily != "" || f.ActorNode != ""

	matched := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.ControlFamily != "" && e.ControlFamily != f.ControlFamily {
			continue
		}
		if f.ActorNode != "" && e.Actor.NodeID != f.ActorNode {
			continue
		}
		if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
			continue
		}
		if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
			continue
		}
		matched = append(matched, e)
	}

	if indexed {
		sortEventsNewestFirst(matched)
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// all returns a snapshot of every stored event, newest first.
func (s *store) all() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	sortEventsNewestFirst(out)
	return out
}

// ActorCount is one entry of Stats.TopActors.
type ActorCount struct {
	NodeID string `json:"node_id"`
	Count  int    `json:"count"`
}

// Stats summarizes the in-memory event population.
type Stats struct {
	TotalEvents int                   `json:"total_events"`
	ByControl   map[ControlFamily]int `json:"by_control_family"`
	ByOutcome   map[Outcome]int       `json:"by_outcome"`
	TopActors   []ActorCount          `json:"top_actors"`
	OldestEvent string                `json:"oldest_event,omitempty"`
	NewestEvent string                `json:"newest_event,omitempty"`
}

func (s *store) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		ByControl: make(map[ControlFamily]int),
		ByOutcome: make(map[Outcome]int),
	}
	byActor := make(map[string]int)
	for i, e := range s.events {
		st.TotalEvents++
		st.ByControl[e.ControlFamily]++
		st.ByOutcome[e.Action.Outcome]++
		if e.Actor.NodeID != "" {
			byActor[e.Actor.NodeID]++
		}
		if i == 0 {
			st.OldestEvent = e.EventID
		}
		st.NewestEvent = e.EventID
	}

	actors := make([]ActorCount, 0, len(byActor))
	for nodeID, count := range byActor {
		actors = append(actors, ActorCount{NodeID: nodeID, Count: count})
	}
	sort.SliceStable(actors, func(i, j int) bool {
		if actors[i].Count != actors[j].Count {
			return actors[i].Count > actors[j].Count
		}
		return actors[i].NodeID < actors[j].NodeID
	})
	if len(actors) > 10 {
		actors = actors[:10]
	}
	st.TopActors = actors

	return st
}

// get looks up a single event by ID.
func (s *store) get(eventID string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.EventID == eventID {
			return e, true
		}
	}
	return Event{}, false
}
