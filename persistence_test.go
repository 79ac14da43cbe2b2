package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJSONStore(t *testing.T) *JSONFileStore {
	t.Helper()
	dir := t.TempDir()
	return NewJSONFileStore(filepath.Join(dir, "events.json"), filepath.Join(dir, "responses.json"))
}

func TestJSONStoreMissingFiles(t *testing.T) {
	js := newTestJSONStore(t)

	snap, err := js.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.Responses)
}

func TestJSONStoreRoundtrip(t *testing.T) {
	js := newTestJSONStore(t)

	deadline := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Events: []*Event{{
			EventName:      "Roundtrip Offkai",
			Venue:          "Izakaya Test",
			Address:        "1-2-3 Testchome",
			GoogleMapsLink: "https://maps.example.com/izakaya",
			EventDatetime:  time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
			EventDeadline:  &deadline,
			MaxCapacity:    intPtr(4),
			Open:           true,
			Drinks:         []string{"Beer", "Tea"},
		}},
		Responses: map[string]*EventResponses{
			"Roundtrip Offkai": {
				Attendees: []Response{{
					UserID:            1,
					ChatID:            100,
					Username:          "alice",
					ExtraPeople:       2,
					BehaviorConfirmed: true,
					EventName:         "Roundtrip Offkai",
					Timestamp:         testNow,
					Drinks:            []string{"Beer"},
				}},
				Waitlist: []WaitlistEntry{{Response{
					UserID:    2,
					ChatID:    200,
					Username:  "bob",
					EventName: "Roundtrip Offkai",
					Timestamp: testNow.Add(time.Minute),
				}}},
			},
		},
	}
	require.NoError(t, js.Save(snap))

	loaded, err := js.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Events, 1)

	ev := loaded.Events[0]
	assert.Equal(t, "Roundtrip Offkai", ev.EventName)
	require.NotNil(t, ev.EventDeadline)
	assert.True(t, ev.EventDeadline.Equal(deadline))
	require.NotNil(t, ev.MaxCapacity)
	assert.Equal(t, 4, *ev.MaxCapacity)
	assert.True(t, ev.Open)
	assert.Equal(t, []string{"Beer", "Tea"}, ev.Drinks)

	container := loaded.Responses["Roundtrip Offkai"]
	require.NotNil(t, container)
	require.Len(t, container.Attendees, 1)
	assert.Equal(t, "alice", container.Attendees[0].Username)
	assert.True(t, container.Attendees[0].BehaviorConfirmed)
	assert.True(t, container.Attendees[0].Timestamp.Equal(testNow))
	require.Len(t, container.Waitlist, 1)
	assert.Equal(t, int64(2), container.Waitlist[0].UserID)
}

func TestJSONStoreOldResponseFormat(t *testing.T) {
	// Files written before the waitlist existed store a flat array per
	// event; it loads as the attendee list.
	js := newTestJSONStore(t)
	old := `{
		"Legacy Offkai": [
			{"user_id": 1, "username": "alice", "extra_people": 1,
			 "behavior_confirmed": "yes", "arrival_confirmed": false,
			 "timestamp": "2026-09-01T12:00:00Z"}
		]
	}`
	require.NoError(t, os.WriteFile(js.ResponsesPath, []byte(old), 0o644))

	snap, err := js.Load()
	require.NoError(t, err)

	container := snap.Responses["Legacy Offkai"]
	require.NotNil(t, container)
	require.Len(t, container.Attendees, 1)
	assert.Empty(t, container.Waitlist)
	assert.Equal(t, "alice", container.Attendees[0].Username)
	assert.True(t, container.Attendees[0].BehaviorConfirmed, `"yes" string flags still load`)
	assert.Equal(t, 2, container.Attendees[0].PartySize())
}

func TestJSONStoreEventDefaults(t *testing.T) {
	// Old event records carry only a name and datetime; everything else
	// gets a default.
	js := newTestJSONStore(t)
	old := `[
		{"event_name": "Sparse Offkai", "event_datetime": "2026-09-03T10:00:00Z"},
		{"event_datetime": "2026-09-03T10:00:00Z"},
		{"event_name": "Naive Offkai", "event_datetime": "2026-09-03T10:00:00"}
	]`
	require.NoError(t, os.WriteFile(js.EventsPath, []byte(old), 0o644))

	snap, err := js.Load()
	require.NoError(t, err)
	require.Len(t, snap.Events, 2, "the nameless record is skipped")

	sparse := snap.Events[0]
	assert.Equal(t, "Unknown Venue", sparse.Venue)
	assert.Equal(t, "Unknown Address", sparse.Address)
	assert.Nil(t, sparse.EventDeadline)
	assert.Nil(t, sparse.MaxCapacity)
	assert.False(t, sparse.Open)
	assert.False(t, sparse.Archived)

	// Zone-less datetimes are treated as JST and converted to UTC.
	naive := snap.Events[1]
	assert.Equal(t, time.Date(2026, 9, 3, 1, 0, 0, 0, time.UTC), naive.EventDatetime.UTC())
}

func TestJSONStoreCaseMismatchedResponseKey(t *testing.T) {
	// Hand-edited files can end up with a responses key whose casing
	// differs from the event record; the container must still attach to
	// the event's stored name.
	js := newTestJSONStore(t)
	events := `[{"event_name": "Mixed Offkai", "event_datetime": "2026-09-03T10:00:00Z", "open": true}]`
	responses := `{
		"mixed offkai": {
			"attendees": [{"user_id": 1, "username": "alice", "timestamp": "2026-09-01T12:00:00Z"}],
			"waitlist": [{"user_id": 2, "username": "bob", "timestamp": "2026-09-01T12:01:00Z"}]
		}
	}`
	require.NoError(t, os.WriteFile(js.EventsPath, []byte(events), 0o644))
	require.NoError(t, os.WriteFile(js.ResponsesPath, []byte(responses), 0o644))

	snap, err := js.Load()
	require.NoError(t, err)

	assert.Nil(t, snap.Responses["mixed offkai"])
	container := snap.Responses["Mixed Offkai"]
	require.NotNil(t, container)
	require.Len(t, container.Attendees, 1)
	assert.Equal(t, "Mixed Offkai", container.Attendees[0].EventName)
	require.Len(t, container.Waitlist, 1)
	assert.Equal(t, "Mixed Offkai", container.Waitlist[0].EventName)
}

func TestJSONStoreCorruptFile(t *testing.T) {
	js := newTestJSONStore(t)
	require.NoError(t, os.WriteFile(js.EventsPath, []byte("{not json"), 0o644))

	_, err := js.Load()
	assert.Error(t, err)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
