package main

import (
	"fmt"
	"strings"
	"time"
)

// MaxExtraPeople is the largest number of extra guests a single
// registration may bring.
const MaxExtraPeople = 5

// Event represents one offkai gathering. The name is the identity and is
// immutable after creation; everything else may change until the event is
// archived. event_datetime and event_deadline are stored in UTC.
type Event struct {
	EventName      string     `json:"event_name"`
	Venue          string     `json:"venue"`
	Address        string     `json:"address"`
	GoogleMapsLink string     `json:"google_maps_link"`
	EventDatetime  time.Time  `json:"event_datetime"`
	EventDeadline  *time.Time `json:"event_deadline,omitempty"`
	MaxCapacity    *int       `json:"max_capacity,omitempty"`
	Open           bool       `json:"open"`
	Archived       bool       `json:"archived"`
	Drinks         []string   `json:"drinks,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// HasDrinks reports whether the event requires a drink selection.
func (e *Event) HasDrinks() bool {
	return len(e.Drinks) > 0
}

// DeadlinePassed reports whether the signup deadline is set and behind now.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.EventDeadline != nil && !now.Before(*e.EventDeadline)
}

// FormatDetails renders the announcement block for the event, converting
// the stored UTC times into the given display location.
func (e *Event) FormatDetails(loc *time.Location) string {
	drinksStr := "No selection needed!"
	if e.HasDrinks() {
		drinksStr = strings.Join(e.Drinks, ", ")
	}

	dtStr := e.EventDatetime.In(loc).Format("2006-01-02 15:04") + " " + loc.String()

	deadlineStr := "Not Set"
	if e.EventDeadline != nil {
		deadlineStr = e.EventDeadline.In(loc).Format("2006-01-02 15:04") + " " + loc.String()
	}

	capacityStr := "Unlimited"
	if e.MaxCapacity != nil {
		capacityStr = fmt.Sprintf("%d", *e.MaxCapacity)
	}

	return fmt.Sprintf(
		"Event Name: %s\nVenue: %s\nAddress: %s\nGoogle Maps Link: %s\nDate and Time: %s\nDeadline: %s\nCapacity: %s\nDrinks: %s",
		e.EventName, e.Venue, e.Address, e.GoogleMapsLink, dtStr, deadlineStr, capacityStr, drinksStr,
	)
}

// Response is one confirmed registration for an event. ChatID is kept so
// the bot can message the user proactively (promotions, reminders).
type Response struct {
	UserID            int64     `json:"user_id"`
	ChatID            int64     `json:"chat_id,omitempty"`
	Username          string    `json:"username"`
	ExtraPeople       int       `json:"extra_people"`
	BehaviorConfirmed bool      `json:"behavior_confirmed"`
	ArrivalConfirmed  bool      `json:"arrival_confirmed"`
	EventName         string    `json:"event_name"`
	Timestamp         time.Time `json:"timestamp"`
	Drinks            []string  `json:"drinks,omitempty"`
}

// PartySize is the number of seats this registration consumes.
func (r *Response) PartySize() int {
	return 1 + r.ExtraPeople
}

// WaitlistEntry is a queued registration. It has the same shape as a
// Response; its queue position is its index in the waitlist slice.
type WaitlistEntry struct {
	Response
}

// EventResponses holds the per-event attendee and waitlist sequences,
// both ordered by response timestamp.
type EventResponses struct {
	Attendees []Response      `json:"attendees"`
	Waitlist  []WaitlistEntry `json:"waitlist"`
}

// AttendeeTotal is the seat count consumed by all confirmed attendees.
func (er *EventResponses) AttendeeTotal() int {
	total := 0
	for i := range er.Attendees {
		total += er.Attendees[i].PartySize()
	}
	return total
}

// Contains reports whether the user appears in either list.
func (er *EventResponses) Contains(userID int64) bool {
	for i := range er.Attendees {
		if er.Attendees[i].UserID == userID {
			return true
		}
	}
	for i := range er.Waitlist {
		if er.Waitlist[i].UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot is the full persistable state of the bot: the event directory
// plus every per-event response container.
type Snapshot struct {
	Events    []*Event                   `json:"events"`
	Responses map[string]*EventResponses `json:"responses"`
}
