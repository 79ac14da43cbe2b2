package main

import (
	"log"
	"time"
)

// CreateEventParams carries everything needed to create an event.
type CreateEventParams struct {
	EventName      string
	Venue          string
	Address        string
	GoogleMapsLink string
	EventDatetime  time.Time
	EventDeadline  *time.Time
	MaxCapacity    *int
	Drinks         []string
	Message        string
}

// CreateEvent validates and adds a new open event. Names are unique among
// non-deleted events under case folding.
func (s *Store) CreateEvent(params CreateEventParams, now time.Time) (Event, error) {
	if err := ValidateEventDatetime(params.EventDatetime, now); err != nil {
		return Event{}, err
	}
	if err := ValidateEventDeadline(params.EventDatetime, params.EventDeadline, now); err != nil {
		return Event{}, err
	}
	if params.MaxCapacity != nil && *params.MaxCapacity < 0 {
		return Event{}, &InvalidCapacityError{Capacity: *params.MaxCapacity}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findEventLocked(params.EventName); err == nil {
		return Event{}, &DuplicateEventError{EventName: params.EventName}
	}

	ev := &Event{
		EventName:      params.EventName,
		Venue:          params.Venue,
		Address:        params.Address,
		GoogleMapsLink: params.GoogleMapsLink,
		EventDatetime:  params.EventDatetime,
		EventDeadline:  params.EventDeadline,
		MaxCapacity:    params.MaxCapacity,
		Open:           true,
		Drinks:         params.Drinks,
		Message:        params.Message,
	}
	s.events = append(s.events, ev)
	if err := s.saveLocked(); err != nil {
		s.events = s.events[:len(s.events)-1]
		return Event{}, err
	}
	log.Printf("event '%s' created", ev.EventName)
	return *ev, nil
}

// EventUpdate carries optional modifications; nil fields are left alone.
type EventUpdate struct {
	Venue          *string
	Address        *string
	GoogleMapsLink *string
	EventDatetime  *time.Time
	EventDeadline  **time.Time // outer nil: untouched; inner nil: clear
	Drinks         *[]string
}

// UpdateEventDetails applies a partial update to a live event. All inputs
// are validated before anything is touched, and a request that would change
// nothing fails with NoChangesProvidedError.
func (s *Store) UpdateEventDetails(eventName string, upd EventUpdate, now time.Time) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return Event{}, err
	}
	if ev.Archived {
		return Event{}, &EventArchivedError{EventName: ev.EventName, Action: "modify"}
	}

	newDatetime := ev.EventDatetime
	if upd.EventDatetime != nil {
		newDatetime = *upd.EventDatetime
		if err := ValidateEventDatetime(newDatetime, now); err != nil {
			return Event{}, err
		}
	}
	newDeadline := ev.EventDeadline
	if upd.EventDeadline != nil {
		// Only a newly supplied deadline must lie in the future. An event
		// whose existing deadline has already passed stays editable.
		newDeadline = *upd.EventDeadline
		if err := ValidateEventDeadline(newDatetime, newDeadline, now); err != nil {
			return Event{}, err
		}
	} else if upd.EventDatetime != nil && newDeadline != nil && !newDeadline.Before(newDatetime) {
		return Event{}, &EventDeadlineAfterEventError{}
	}

	modified := false
	if upd.Venue != nil && *upd.Venue != ev.Venue {
		modified = true
	}
	if upd.Address != nil && *upd.Address != ev.Address {
		modified = true
	}
	if upd.GoogleMapsLink != nil && *upd.GoogleMapsLink != ev.GoogleMapsLink {
		modified = true
	}
	if upd.EventDatetime != nil && !newDatetime.Equal(ev.EventDatetime) {
		modified = true
	}
	if upd.EventDeadline != nil && !timePtrEqual(newDeadline, ev.EventDeadline) {
		modified = true
	}
	if upd.Drinks != nil && !sameStringSet(*upd.Drinks, ev.Drinks) {
		modified = true
	}
	if !modified {
		return Event{}, &NoChangesProvidedError{}
	}

	prev := *ev
	if upd.Venue != nil {
		ev.Venue = *upd.Venue
	}
	if upd.Address != nil {
		ev.Address = *upd.Address
	}
	if upd.GoogleMapsLink != nil {
		ev.GoogleMapsLink = *upd.GoogleMapsLink
	}
	if upd.EventDatetime != nil {
		ev.EventDatetime = newDatetime
	}
	if upd.EventDeadline != nil {
		ev.EventDeadline = newDeadline
	}
	if upd.Drinks != nil {
		ev.Drinks = *upd.Drinks
	}

	if err := s.saveLocked(); err != nil {
		*ev = prev
		return Event{}, err
	}
	log.Printf("event '%s' details updated", ev.EventName)
	return *ev, nil
}

// CloseEvent stops direct registration; waitlist joins remain possible.
func (s *Store) CloseEvent(eventName string) (Event, error) {
	return s.setOpenStatus(eventName, false)
}

// ReopenEvent re-enables direct registration on a closed event.
func (s *Store) ReopenEvent(eventName string) (Event, error) {
	return s.setOpenStatus(eventName, true)
}

func (s *Store) setOpenStatus(eventName string, open bool) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return Event{}, err
	}
	if ev.Archived {
		action := "close"
		if open {
			action = "reopen"
		}
		return Event{}, &EventArchivedError{EventName: ev.EventName, Action: action}
	}
	// Redundant transitions are errors, not no-ops.
	if open && ev.Open {
		return Event{}, &EventAlreadyOpenError{EventName: ev.EventName}
	}
	if !open && !ev.Open {
		return Event{}, &EventAlreadyClosedError{EventName: ev.EventName}
	}

	ev.Open = open
	if err := s.saveLocked(); err != nil {
		ev.Open = !open
		return Event{}, err
	}
	status := "closed"
	if open {
		status = "open"
	}
	log.Printf("event '%s' marked as %s", ev.EventName, status)
	return *ev, nil
}

// ArchiveEvent retires an event. Archiving always closes it too; attendee
// and waitlist data stays intact. Irreversible.
func (s *Store) ArchiveEvent(eventName string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return Event{}, err
	}
	if ev.Archived {
		return Event{}, &EventAlreadyArchivedError{EventName: ev.EventName}
	}

	prev := *ev
	ev.Archived = true
	ev.Open = false
	if err := s.saveLocked(); err != nil {
		*ev = prev
		return Event{}, err
	}
	log.Printf("event '%s' archived", ev.EventName)
	return *ev, nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// sameStringSet compares ignoring order and duplicates.
func sameStringSet(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	other := make(map[string]bool, len(b))
	for _, s := range b {
		other[s] = true
	}
	if len(seen) != len(other) {
		return false
	}
	for s := range seen {
		if !other[s] {
			return false
		}
	}
	return true
}
