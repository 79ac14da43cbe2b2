package main

import (
	"strings"
	"time"
)

// JST is the timezone offkai date inputs are written in. Storage is
// always UTC; JST only matters at the parse/display boundary.
var JST = time.FixedZone("JST", 9*60*60)

const eventDateTimeLayout = "2006-01-02 15:04"

// ParseEventDatetime parses "YYYY-MM-DD HH:MM", treats it as JST, and
// returns the UTC equivalent.
func ParseEventDatetime(s string) (time.Time, error) {
	naive, err := time.ParseInLocation(eventDateTimeLayout, strings.TrimSpace(s), JST)
	if err != nil {
		return time.Time{}, &InvalidDateTimeFormatError{}
	}
	return naive.UTC(), nil
}

// ParseDrinks splits a comma-separated drinks string, dropping empties.
func ParseDrinks(s string) []string {
	if s == "" {
		return nil
	}
	var drinks []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			drinks = append(drinks, d)
		}
	}
	return drinks
}

// ValidateEventDatetime requires the event time to be in the future.
func ValidateEventDatetime(eventDatetime, now time.Time) error {
	if !eventDatetime.After(now) {
		return &EventDateTimeInPastError{}
	}
	return nil
}

// ValidateEventDeadline requires the deadline, when set, to be in the
// future and strictly before the event time.
func ValidateEventDeadline(eventDatetime time.Time, deadline *time.Time, now time.Time) error {
	if deadline == nil {
		return nil
	}
	if deadline.Before(now) {
		return &EventDeadlineInPastError{}
	}
	if !deadline.Before(eventDatetime) {
		return &EventDeadlineAfterEventError{}
	}
	return nil
}

// ValidateExtraPeople bounds the extra guest count.
func ValidateExtraPeople(n int) error {
	if n < 0 || n > MaxExtraPeople {
		return &InvalidExtraPeopleError{Count: n}
	}
	return nil
}
