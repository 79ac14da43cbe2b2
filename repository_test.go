package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteStore(db)
	require.NoError(t, repo.CreateTables())
	return repo
}

func TestSQLiteStoreEmpty(t *testing.T) {
	repo := newTestSQLiteStore(t)

	snap, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.Responses)
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	repo := newTestSQLiteStore(t)

	deadline := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Events: []*Event{{
			EventName:     "SQLite Offkai",
			Venue:         "Izakaya Test",
			Address:       "1-2-3 Testchome",
			EventDatetime: time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
			EventDeadline: &deadline,
			MaxCapacity:   intPtr(3),
			Open:          true,
			Drinks:        []string{"Beer", "Tea"},
		}, {
			EventName:     "Unlimited Offkai",
			EventDatetime: time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC),
			Archived:      true,
		}},
		Responses: map[string]*EventResponses{
			"SQLite Offkai": {
				Attendees: []Response{{
					UserID:            1,
					ChatID:            100,
					Username:          "alice",
					ExtraPeople:       1,
					BehaviorConfirmed: true,
					ArrivalConfirmed:  true,
					EventName:         "SQLite Offkai",
					Timestamp:         testNow,
					Drinks:            []string{"Beer"},
				}},
				Waitlist: []WaitlistEntry{
					{Response{UserID: 2, Username: "bob", EventName: "SQLite Offkai", Timestamp: testNow.Add(time.Minute)}},
					{Response{UserID: 3, Username: "carol", EventName: "SQLite Offkai", Timestamp: testNow.Add(2 * time.Minute)}},
				},
			},
		},
	}
	require.NoError(t, repo.Save(snap))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Events, 2)

	byName := map[string]*Event{}
	for _, ev := range loaded.Events {
		byName[ev.EventName] = ev
	}
	ev := byName["SQLite Offkai"]
	require.NotNil(t, ev)
	require.NotNil(t, ev.EventDeadline)
	assert.True(t, ev.EventDeadline.Equal(deadline))
	require.NotNil(t, ev.MaxCapacity)
	assert.Equal(t, 3, *ev.MaxCapacity)
	assert.Equal(t, []string{"Beer", "Tea"}, ev.Drinks)

	unlimited := byName["Unlimited Offkai"]
	require.NotNil(t, unlimited)
	assert.Nil(t, unlimited.MaxCapacity)
	assert.Nil(t, unlimited.EventDeadline)
	assert.True(t, unlimited.Archived)

	container := loaded.Responses["SQLite Offkai"]
	require.NotNil(t, container)
	require.Len(t, container.Attendees, 1)
	assert.True(t, container.Attendees[0].ArrivalConfirmed)

	// Waitlist order survives the roundtrip.
	require.Len(t, container.Waitlist, 2)
	assert.Equal(t, int64(2), container.Waitlist[0].UserID)
	assert.Equal(t, int64(3), container.Waitlist[1].UserID)
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	repo := newTestSQLiteStore(t)

	first := &Snapshot{
		Events: []*Event{{EventName: "Gone Offkai", EventDatetime: testNow}},
		Responses: map[string]*EventResponses{
			"Gone Offkai": {Attendees: []Response{{UserID: 1, Username: "alice", EventName: "Gone Offkai", Timestamp: testNow}}},
		},
	}
	require.NoError(t, repo.Save(first))

	second := &Snapshot{
		Events:    []*Event{{EventName: "Kept Offkai", EventDatetime: testNow}},
		Responses: map[string]*EventResponses{},
	}
	require.NoError(t, repo.Save(second))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Events, 1)
	assert.Equal(t, "Kept Offkai", loaded.Events[0].EventName)
	assert.Empty(t, loaded.Responses)
}
