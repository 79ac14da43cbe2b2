package main

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Store owns the event directory and every per-event response container.
// All mutations run under one lock: read state, decide, mutate, persist.
// A failed persist rolls the in-memory change back, so memory and disk
// never drift apart. Notification dispatch happens in the caller, after
// the lock is released, from the outcome data the operation returned.
type Store struct {
	mu        sync.Mutex
	events    []*Event
	responses map[string]*EventResponses
	backend   Persistence
}

// NewStore creates an empty store writing through the given backend.
func NewStore(backend Persistence) *Store {
	return &Store{
		responses: make(map[string]*EventResponses),
		backend:   backend,
	}
}

// Load replaces the in-memory state with the backend's snapshot.
func (s *Store) Load() error {
	snap, err := s.backend.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.Events
	s.responses = snap.Responses
	if s.responses == nil {
		s.responses = make(map[string]*EventResponses)
	}
	log.Printf("loaded %d events, responses for %d events", len(s.events), len(s.responses))
	return nil
}

// saveLocked persists the current state. Callers must hold s.mu.
func (s *Store) saveLocked() error {
	return s.backend.Save(&Snapshot{Events: s.events, Responses: s.responses})
}

// findEventLocked looks an event up by name, case-insensitively.
func (s *Store) findEventLocked(name string) (*Event, error) {
	for _, ev := range s.events {
		if strings.EqualFold(ev.EventName, name) {
			return ev, nil
		}
	}
	return nil, &EventNotFoundError{EventName: name}
}

// containerLocked returns the response container for an event, creating it
// on first use. The container is keyed by the event's canonical name.
func (s *Store) containerLocked(ev *Event) *EventResponses {
	container, ok := s.responses[ev.EventName]
	if !ok {
		container = &EventResponses{}
		s.responses[ev.EventName] = container
	}
	return container
}

// cloneContainer deep-copies a response container for rollback.
func cloneContainer(c *EventResponses) *EventResponses {
	if c == nil {
		return nil
	}
	clone := &EventResponses{
		Attendees: make([]Response, len(c.Attendees)),
		Waitlist:  make([]WaitlistEntry, len(c.Waitlist)),
	}
	copy(clone.Attendees, c.Attendees)
	copy(clone.Waitlist, c.Waitlist)
	return clone
}

// GetEvent returns a copy of the named event.
func (s *Store) GetEvent(name string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(name)
	if err != nil {
		return Event{}, err
	}
	return *ev, nil
}

// ActiveEvents returns copies of all non-archived events, soonest first.
func (s *Store) ActiveEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []Event
	for _, ev := range s.events {
		if !ev.Archived {
			active = append(active, *ev)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].EventDatetime.Before(active[j].EventDatetime)
	})
	return active
}

// Attendees returns a copy of the confirmed attendee list for an event.
func (s *Store) Attendees(eventName string) ([]Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	container := s.containerLocked(ev)
	out := make([]Response, len(container.Attendees))
	copy(out, container.Attendees)
	return out, nil
}

// Waitlist returns a copy of the FIFO waitlist for an event.
func (s *Store) Waitlist(eventName string) ([]WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	container := s.containerLocked(ev)
	out := make([]WaitlistEntry, len(container.Waitlist))
	copy(out, container.Waitlist)
	return out, nil
}

// Attendance reports the total headcount including extras and a name list
// with one "+N" row per extra guest.
func (s *Store) Attendance(eventName string) (int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return 0, nil, err
	}
	container := s.containerLocked(ev)
	if len(container.Attendees) == 0 {
		return 0, nil, &NoResponsesFoundError{EventName: ev.EventName}
	}

	var names []string
	total := 0
	for i := range container.Attendees {
		resp := &container.Attendees[i]
		names = append(names, resp.Username)
		total++
		for n := 1; n <= resp.ExtraPeople; n++ {
			names = append(names, resp.Username+" +"+strconv.Itoa(n))
			total++
		}
	}
	return total, names, nil
}

// DrinksTally counts drink picks across confirmed attendees.
func (s *Store) DrinksTally(eventName string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	tally := make(map[string]int)
	container := s.containerLocked(ev)
	for i := range container.Attendees {
		for _, d := range container.Attendees[i].Drinks {
			tally[d]++
		}
	}
	return tally, nil
}

// ConfirmArrival marks a confirmed attendee as arrived (day-of check-in).
func (s *Store) ConfirmArrival(eventName string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return err
	}
	container := s.containerLocked(ev)
	for i := range container.Attendees {
		if container.Attendees[i].UserID == userID {
			if container.Attendees[i].ArrivalConfirmed {
				return nil
			}
			container.Attendees[i].ArrivalConfirmed = true
			if err := s.saveLocked(); err != nil {
				container.Attendees[i].ArrivalConfirmed = false
				return err
			}
			log.Printf("user %d checked in for event '%s'", userID, ev.EventName)
			return nil
		}
	}
	return &NotRegisteredError{EventName: ev.EventName, UserID: userID}
}
