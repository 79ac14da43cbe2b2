package main

import (
	"log"
	"strconv"
	"time"
)

// RegisterStatus says where a registration landed.
type RegisterStatus int

const (
	StatusConfirmed RegisterStatus = iota
	StatusWaitlisted
)

// WaitlistReason explains why a registration went to the waitlist instead
// of the attendee list. The command layer phrases the user message from it.
type WaitlistReason string

const (
	ReasonClosed       WaitlistReason = "closed"
	ReasonPastDeadline WaitlistReason = "past_deadline"
	ReasonFull         WaitlistReason = "full"
)

// RegisterOutcome is the structured result of a registration request.
type RegisterOutcome struct {
	Status    RegisterStatus
	Reason    WaitlistReason // set when Status is StatusWaitlisted
	EventName string
	Response  Response
}

// ListKind identifies which list a withdrawal removed the user from.
type ListKind int

const (
	FromAttendees ListKind = iota
	FromWaitlist
)

// WithdrawResult is the structured result of a withdrawal.
type WithdrawResult struct {
	EventName    string
	RemovedFrom  ListKind
	Removed      Response
	Promoted     []Response // in promotion order, empty if none
	PostDeadline bool
}

// CapacityResult is the structured result of a capacity change.
type CapacityResult struct {
	EventName string
	Promoted  []Response
}

// Register applies the admission policy for one registration request.
//
// Decision order: duplicate check, archived check, then admission. A
// request is admitted only when the event is open, the deadline (if any)
// has not passed, and the party fits the remaining capacity; otherwise it
// joins the waitlist with a reason code. Waitlist joins are allowed even
// when the event is closed or past deadline.
func (s *Store) Register(eventName string, resp Response, now time.Time) (*RegisterOutcome, error) {
	if err := ValidateExtraPeople(resp.ExtraPeople); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	container := s.containerLocked(ev)

	if container.Contains(resp.UserID) {
		return nil, &DuplicateRegistrationError{EventName: ev.EventName, UserID: resp.UserID}
	}
	if ev.Archived {
		return nil, &EventArchivedError{EventName: ev.EventName, Action: "register for"}
	}

	resp.EventName = ev.EventName
	if resp.Timestamp.IsZero() {
		resp.Timestamp = now
	}

	outcome := &RegisterOutcome{EventName: ev.EventName, Response: resp}

	switch {
	case !ev.Open:
		outcome.Status = StatusWaitlisted
		outcome.Reason = ReasonClosed
	case ev.DeadlinePassed(now):
		outcome.Status = StatusWaitlisted
		outcome.Reason = ReasonPastDeadline
	case !partyFits(ev, container, resp.PartySize()):
		outcome.Status = StatusWaitlisted
		outcome.Reason = ReasonFull
	default:
		outcome.Status = StatusConfirmed
	}

	if outcome.Status == StatusConfirmed {
		container.Attendees = append(container.Attendees, resp)
		if err := s.saveLocked(); err != nil {
			container.Attendees = container.Attendees[:len(container.Attendees)-1]
			return nil, err
		}
		log.Printf("user %d confirmed for event '%s' (party of %d)", resp.UserID, ev.EventName, resp.PartySize())
	} else {
		container.Waitlist = append(container.Waitlist, WaitlistEntry{resp})
		if err := s.saveLocked(); err != nil {
			container.Waitlist = container.Waitlist[:len(container.Waitlist)-1]
			return nil, err
		}
		log.Printf("user %d waitlisted for event '%s' (reason: %s)", resp.UserID, ev.EventName, outcome.Reason)
	}
	return outcome, nil
}

// partyFits reports whether a party of size p fits the remaining capacity.
func partyFits(ev *Event, container *EventResponses, p int) bool {
	if ev.MaxCapacity == nil {
		return true
	}
	return p <= *ev.MaxCapacity-container.AttendeeTotal()
}

// Withdraw removes a user's registration. Removal from the attendee list
// frees capacity and triggers waitlist promotion; removal from the
// waitlist never does. Withdrawal is allowed regardless of open, deadline,
// or archived state.
func (s *Store) Withdraw(eventName string, userID int64, now time.Time) (*WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	container := s.containerLocked(ev)
	prev := cloneContainer(container)

	result := &WithdrawResult{
		EventName:    ev.EventName,
		PostDeadline: ev.DeadlinePassed(now),
	}

	removed := false
	for i := range container.Attendees {
		if container.Attendees[i].UserID == userID {
			result.RemovedFrom = FromAttendees
			result.Removed = container.Attendees[i]
			container.Attendees = append(container.Attendees[:i], container.Attendees[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i := range container.Waitlist {
			if container.Waitlist[i].UserID == userID {
				result.RemovedFrom = FromWaitlist
				result.Removed = container.Waitlist[i].Response
				container.Waitlist = append(container.Waitlist[:i], container.Waitlist[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return nil, &NotRegisteredError{EventName: ev.EventName, UserID: userID}
	}

	if result.RemovedFrom == FromAttendees {
		result.Promoted = promote(ev, container)
	}

	if err := s.saveLocked(); err != nil {
		s.responses[ev.EventName] = prev
		return nil, err
	}
	log.Printf("user %d withdrawn from event '%s' (promoted %d from waitlist)",
		userID, ev.EventName, len(result.Promoted))
	return result, nil
}

// SetCapacity changes an event's maximum capacity; nil means unlimited.
// Increases always succeed and immediately promote from the waitlist.
// Decreases are refused if the new capacity would strand confirmed
// attendees or if the waitlist is not empty.
func (s *Store) SetCapacity(eventName string, newCapacity *int, now time.Time) (*CapacityResult, error) {
	if newCapacity != nil && *newCapacity < 0 {
		return nil, &InvalidCapacityError{Capacity: *newCapacity}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.findEventLocked(eventName)
	if err != nil {
		return nil, err
	}
	if ev.Archived {
		return nil, &EventArchivedError{EventName: ev.EventName, Action: "modify"}
	}
	container := s.containerLocked(ev)

	if isCapacityDecrease(ev.MaxCapacity, newCapacity) {
		if *newCapacity < container.AttendeeTotal() {
			return nil, &InvalidCapacityChangeError{EventName: ev.EventName, Reason: CapacityChangeWouldStrand}
		}
		if len(container.Waitlist) > 0 {
			return nil, &InvalidCapacityChangeError{EventName: ev.EventName, Reason: CapacityChangeWaitlistBlock}
		}
	}

	prevCapacity := ev.MaxCapacity
	prevContainer := cloneContainer(container)

	increase := isCapacityIncrease(prevCapacity, newCapacity)
	ev.MaxCapacity = newCapacity
	result := &CapacityResult{EventName: ev.EventName}
	if increase {
		result.Promoted = promote(ev, container)
	}

	if err := s.saveLocked(); err != nil {
		ev.MaxCapacity = prevCapacity
		s.responses[ev.EventName] = prevContainer
		return nil, err
	}
	log.Printf("event '%s' capacity set to %s (promoted %d from waitlist)",
		ev.EventName, capacityString(newCapacity), len(result.Promoted))
	return result, nil
}

// isCapacityIncrease compares capacities where nil means unlimited.
func isCapacityIncrease(current, next *int) bool {
	if current == nil {
		return false
	}
	if next == nil {
		return true
	}
	return *next > *current
}

// isCapacityDecrease compares capacities where nil means unlimited.
func isCapacityDecrease(current, next *int) bool {
	if next == nil {
		return false
	}
	if current == nil {
		return true
	}
	return *next < *current
}

func capacityString(c *int) string {
	if c == nil {
		return "unlimited"
	}
	return strconv.Itoa(*c)
}

// promote moves waitlist entries into the attendee list while the head of
// the queue fits the remaining capacity. Strict FIFO: a head that does not
// fit halts the batch, and nothing behind it is promoted around it. An
// entry larger than the whole capacity simply stays queued.
func promote(ev *Event, container *EventResponses) []Response {
	var promoted []Response
	for len(container.Waitlist) > 0 {
		head := &container.Waitlist[0].Response
		if !partyFits(ev, container, head.PartySize()) {
			break
		}
		container.Attendees = append(container.Attendees, *head)
		container.Waitlist = container.Waitlist[1:]
		promoted = append(promoted, container.Attendees[len(container.Attendees)-1])
	}
	return promoted
}
