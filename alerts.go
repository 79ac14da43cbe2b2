package main

import (
	"errors"
	"log"
	"sync"
	"time"
)

// DeadlineScheduler closes events automatically when their signup deadline
// fires. One timer per event; re-registering replaces the old timer.
type DeadlineScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	store   *Store
	onClose func(ev Event)
}

func NewDeadlineScheduler(store *Store, onClose func(ev Event)) *DeadlineScheduler {
	return &DeadlineScheduler{
		timers:  make(map[string]*time.Timer),
		store:   store,
		onClose: onClose,
	}
}

// RegisterAll schedules timers for every open event with a future deadline.
// Called once on startup.
func (d *DeadlineScheduler) RegisterAll() {
	now := time.Now().UTC()
	for _, ev := range d.store.ActiveEvents() {
		if ev.Open && ev.EventDeadline != nil && ev.EventDeadline.After(now) {
			d.Register(ev.EventName, *ev.EventDeadline)
		}
	}
}

// Register schedules (or reschedules) the auto-close for an event.
func (d *DeadlineScheduler) Register(eventName string, deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[eventName]; ok {
		timer.Stop()
	}
	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}
	d.timers[eventName] = time.AfterFunc(delay, func() {
		d.fire(eventName)
	})
	log.Printf("deadline auto-close scheduled for event '%s' at %s", eventName, deadline.Format(time.RFC3339))
}

// Cancel drops the timer for an event, if any.
func (d *DeadlineScheduler) Cancel(eventName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[eventName]; ok {
		timer.Stop()
		delete(d.timers, eventName)
	}
}

// Scheduled reports whether an auto-close timer exists for the event.
func (d *DeadlineScheduler) Scheduled(eventName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[eventName]
	return ok
}

func (d *DeadlineScheduler) fire(eventName string) {
	d.mu.Lock()
	delete(d.timers, eventName)
	d.mu.Unlock()

	ev, err := d.store.CloseEvent(eventName)
	if err != nil {
		var alreadyClosed *EventAlreadyClosedError
		if errors.As(err, &alreadyClosed) {
			return
		}
		log.Printf("deadline auto-close for event '%s' failed: %v", eventName, err)
		return
	}
	log.Printf("event '%s' closed automatically at deadline", eventName)
	if d.onClose != nil {
		d.onClose(ev)
	}
}
