package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent(t *testing.T) {
	store, backend := newTestStore(t)
	ev := addTestEvent(t, store, "Autumn Offkai", intPtr(10))

	assert.True(t, ev.Open, "new events accept registrations")
	assert.False(t, ev.Archived)
	assert.Equal(t, 1, backend.saves)

	got, err := store.GetEvent("Autumn Offkai")
	require.NoError(t, err)
	assert.Equal(t, "Izakaya Test", got.Venue)
}

func TestCreateEventDuplicateName(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	_, err := store.CreateEvent(CreateEventParams{
		EventName:     "autumn offkai", // names are unique under case folding
		EventDatetime: testNow.Add(time.Hour),
	}, testNow)
	var dup *DuplicateEventError
	assert.ErrorAs(t, err, &dup)
}

func TestCreateEventValidation(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreateEvent(CreateEventParams{
		EventName:     "Past Offkai",
		EventDatetime: testNow.Add(-time.Hour),
	}, testNow)
	var inPast *EventDateTimeInPastError
	assert.ErrorAs(t, err, &inPast)

	lateDeadline := testNow.Add(72 * time.Hour)
	_, err = store.CreateEvent(CreateEventParams{
		EventName:     "Bad Deadline Offkai",
		EventDatetime: testNow.Add(48 * time.Hour),
		EventDeadline: &lateDeadline,
	}, testNow)
	var afterEvent *EventDeadlineAfterEventError
	assert.ErrorAs(t, err, &afterEvent)

	pastDeadline := testNow.Add(-time.Hour)
	_, err = store.CreateEvent(CreateEventParams{
		EventName:     "Stale Deadline Offkai",
		EventDatetime: testNow.Add(48 * time.Hour),
		EventDeadline: &pastDeadline,
	}, testNow)
	var deadlinePast *EventDeadlineInPastError
	assert.ErrorAs(t, err, &deadlinePast)

	_, err = store.CreateEvent(CreateEventParams{
		EventName:     "Negative Offkai",
		EventDatetime: testNow.Add(48 * time.Hour),
		MaxCapacity:   intPtr(-3),
	}, testNow)
	var invalidCap *InvalidCapacityError
	assert.ErrorAs(t, err, &invalidCap)
}

func TestGetEventCaseInsensitive(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	ev, err := store.GetEvent("AUTUMN OFFKAI")
	require.NoError(t, err)
	assert.Equal(t, "Autumn Offkai", ev.EventName, "stored casing is kept")
}

func TestUpdateEventDetails(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	venue := "New Venue"
	ev, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{Venue: &venue}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "New Venue", ev.Venue)
}

func TestUpdateEventNoChanges(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	venue := "Izakaya Test" // same as current
	_, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{Venue: &venue}, testNow)
	var noChanges *NoChangesProvidedError
	assert.ErrorAs(t, err, &noChanges)
}

func TestUpdateEventAfterDeadlinePassed(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil) // deadline testNow+24h

	// Editing details leaves the deadline alone, so a deadline already
	// behind us must not block the change.
	late := testNow.Add(30 * time.Hour)
	venue := "Moved Venue"
	ev, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{Venue: &venue}, late)
	require.NoError(t, err)
	assert.Equal(t, "Moved Venue", ev.Venue)

	// Supplying a new deadline still has to point at the future.
	stale := testNow.Add(-time.Hour)
	stalePtr := &stale
	_, err = store.UpdateEventDetails("Autumn Offkai", EventUpdate{EventDeadline: &stalePtr}, late)
	var deadlinePast *EventDeadlineInPastError
	assert.ErrorAs(t, err, &deadlinePast)
}

func TestUpdateEventDatetimeKeepsDeadlineOrdering(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil) // deadline testNow+24h, event testNow+48h

	// Pulling the event before its existing deadline breaks the ordering.
	early := testNow.Add(12 * time.Hour)
	_, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{EventDatetime: &early}, testNow)
	var afterEvent *EventDeadlineAfterEventError
	assert.ErrorAs(t, err, &afterEvent)

	// Pushing it out later is fine without retouching the deadline.
	later := testNow.Add(72 * time.Hour)
	ev, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{EventDatetime: &later}, testNow)
	require.NoError(t, err)
	assert.True(t, ev.EventDatetime.Equal(later))
}

func TestUpdateEventClearDeadline(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	var cleared *time.Time
	ev, err := store.UpdateEventDetails("Autumn Offkai", EventUpdate{EventDeadline: &cleared}, testNow)
	require.NoError(t, err)
	assert.Nil(t, ev.EventDeadline)
}

func TestUpdateEventArchivedRejected(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)
	_, err := store.ArchiveEvent("Autumn Offkai")
	require.NoError(t, err)

	venue := "New Venue"
	_, err = store.UpdateEventDetails("Autumn Offkai", EventUpdate{Venue: &venue}, testNow)
	var archived *EventArchivedError
	assert.ErrorAs(t, err, &archived)
}

func TestCloseAndReopen(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	ev, err := store.CloseEvent("Autumn Offkai")
	require.NoError(t, err)
	assert.False(t, ev.Open)

	ev, err = store.ReopenEvent("Autumn Offkai")
	require.NoError(t, err)
	assert.True(t, ev.Open)
}

func TestRedundantTransitionsAreErrors(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)

	_, err := store.ReopenEvent("Autumn Offkai")
	var alreadyOpen *EventAlreadyOpenError
	assert.ErrorAs(t, err, &alreadyOpen)

	_, err = store.CloseEvent("Autumn Offkai")
	require.NoError(t, err)
	_, err = store.CloseEvent("Autumn Offkai")
	var alreadyClosed *EventAlreadyClosedError
	assert.ErrorAs(t, err, &alreadyClosed)
}

func TestArchive(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)
	mustRegister(t, store, "Autumn Offkai", testResponse(1, 1), testNow)

	ev, err := store.ArchiveEvent("Autumn Offkai")
	require.NoError(t, err)
	assert.True(t, ev.Archived)
	assert.False(t, ev.Open, "archiving always closes")

	// Archival removes the event from active listings but keeps responses.
	assert.Empty(t, store.ActiveEvents())
	attendees, err := store.Attendees("Autumn Offkai")
	require.NoError(t, err)
	assert.Len(t, attendees, 1)

	_, err = store.ArchiveEvent("Autumn Offkai")
	var already *EventAlreadyArchivedError
	assert.ErrorAs(t, err, &already)
}

func TestCloseArchivedRejected(t *testing.T) {
	store, _ := newTestStore(t)
	addTestEvent(t, store, "Autumn Offkai", nil)
	_, err := store.ArchiveEvent("Autumn Offkai")
	require.NoError(t, err)

	_, err = store.CloseEvent("Autumn Offkai")
	var archived *EventArchivedError
	assert.ErrorAs(t, err, &archived)

	_, err = store.ReopenEvent("Autumn Offkai")
	assert.ErrorAs(t, err, &archived)
}

func TestActiveEventsSorted(t *testing.T) {
	store, _ := newTestStore(t)

	later, err := store.CreateEvent(CreateEventParams{
		EventName:     "Later Offkai",
		EventDatetime: testNow.Add(96 * time.Hour),
	}, testNow)
	require.NoError(t, err)
	sooner, err := store.CreateEvent(CreateEventParams{
		EventName:     "Sooner Offkai",
		EventDatetime: testNow.Add(24 * time.Hour),
	}, testNow)
	require.NoError(t, err)

	active := store.ActiveEvents()
	require.Len(t, active, 2)
	assert.Equal(t, sooner.EventName, active[0].EventName)
	assert.Equal(t, later.EventName, active[1].EventName)
}
