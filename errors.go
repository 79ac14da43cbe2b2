package main

import "fmt"

// All failures below are request-level: they are returned to the command
// layer for user-facing messaging and never abort the process.

// EventNotFoundError is returned when no event matches the given name.
type EventNotFoundError struct {
	EventName string
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("event '%s' not found", e.EventName)
}

// DuplicateEventError is returned when creating an event whose name is
// already taken.
type DuplicateEventError struct {
	EventName string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("an event named '%s' already exists", e.EventName)
}

// EventArchivedError is returned when an action that requires a live event
// is attempted on an archived one.
type EventArchivedError struct {
	EventName string
	Action    string
}

func (e *EventArchivedError) Error() string {
	return fmt.Sprintf("cannot %s an archived event ('%s')", e.Action, e.EventName)
}

// EventAlreadyArchivedError is returned on a redundant archive request.
type EventAlreadyArchivedError struct {
	EventName string
}

func (e *EventAlreadyArchivedError) Error() string {
	return fmt.Sprintf("event '%s' is already archived", e.EventName)
}

// EventAlreadyClosedError is returned when closing a closed event.
type EventAlreadyClosedError struct {
	EventName string
}

func (e *EventAlreadyClosedError) Error() string {
	return fmt.Sprintf("event '%s' is already closed", e.EventName)
}

// EventAlreadyOpenError is returned when reopening an open event.
type EventAlreadyOpenError struct {
	EventName string
}

func (e *EventAlreadyOpenError) Error() string {
	return fmt.Sprintf("event '%s' is already open", e.EventName)
}

// DuplicateRegistrationError is returned when the user already appears in
// the attendee list or the waitlist of the event.
type DuplicateRegistrationError struct {
	EventName string
	UserID    int64
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("user %d already responded to event '%s'", e.UserID, e.EventName)
}

// NotRegisteredError is returned when withdrawing a user with no recorded
// registration for the event.
type NotRegisteredError struct {
	EventName string
	UserID    int64
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no response found for user %d in event '%s'", e.UserID, e.EventName)
}

// Reasons an InvalidCapacityChangeError can carry.
const (
	CapacityChangeWouldStrand   = "would_strand_attendees"
	CapacityChangeWaitlistBlock = "non_empty_waitlist"
)

// InvalidCapacityChangeError is returned when a capacity decrease would
// strand confirmed attendees or skip over a non-empty waitlist.
type InvalidCapacityChangeError struct {
	EventName string
	Reason    string
}

func (e *InvalidCapacityChangeError) Error() string {
	switch e.Reason {
	case CapacityChangeWouldStrand:
		return fmt.Sprintf("cannot reduce capacity of '%s' below the current attendee total", e.EventName)
	case CapacityChangeWaitlistBlock:
		return fmt.Sprintf("cannot reduce capacity of '%s' while the waitlist is not empty", e.EventName)
	}
	return fmt.Sprintf("invalid capacity change for '%s'", e.EventName)
}

// NoResponsesFoundError is returned by attendance queries on an event with
// no responses.
type NoResponsesFoundError struct {
	EventName string
}

func (e *NoResponsesFoundError) Error() string {
	return fmt.Sprintf("no responses found for '%s'", e.EventName)
}

// NoChangesProvidedError is returned when a modify request would change
// nothing.
type NoChangesProvidedError struct{}

func (e *NoChangesProvidedError) Error() string {
	return "no changes provided to modify"
}

// InvalidDateTimeFormatError is returned for unparseable date inputs.
type InvalidDateTimeFormatError struct{}

func (e *InvalidDateTimeFormatError) Error() string {
	return "invalid date format, use YYYY-MM-DD HH:MM"
}

// EventDateTimeInPastError is returned when an event is scheduled in the past.
type EventDateTimeInPastError struct{}

func (e *EventDateTimeInPastError) Error() string {
	return "event date and time must be in the future"
}

// EventDeadlineInPastError is returned when a signup deadline is in the past.
type EventDeadlineInPastError struct{}

func (e *EventDeadlineInPastError) Error() string {
	return "event deadline must be in the future"
}

// EventDeadlineAfterEventError is returned when a signup deadline falls on
// or after the event itself.
type EventDeadlineAfterEventError struct{}

func (e *EventDeadlineAfterEventError) Error() string {
	return "event deadline must be before the event date and time"
}

// InvalidExtraPeopleError is returned when the extra guest count is outside
// [0, MaxExtraPeople].
type InvalidExtraPeopleError struct {
	Count int
}

func (e *InvalidExtraPeopleError) Error() string {
	return fmt.Sprintf("extra people must be between 0 and %d, got %d", MaxExtraPeople, e.Count)
}

// InvalidCapacityError is returned when a negative capacity is supplied.
type InvalidCapacityError struct {
	Capacity int
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("capacity must be zero or positive, got %d", e.Capacity)
}
