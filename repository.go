package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore is the database-backed Persistence implementation. Every
// save replaces the full snapshot inside one transaction, which keeps the
// atomic-replace property of the JSON backend.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTables creates the schema if it does not exist yet.
func (r *SQLiteStore) CreateTables() error {
	eventTable := `CREATE TABLE IF NOT EXISTS events (
		event_name TEXT PRIMARY KEY,
		venue TEXT,
		address TEXT,
		google_maps_link TEXT,
		event_datetime TEXT,
		event_deadline TEXT,
		max_capacity INTEGER,
		open INTEGER DEFAULT 0,
		archived INTEGER DEFAULT 0,
		drinks TEXT,
		message TEXT
	);`

	responseTable := `CREATE TABLE IF NOT EXISTS responses (
		event_name TEXT,
		user_id INTEGER,
		chat_id INTEGER,
		username TEXT,
		extra_people INTEGER DEFAULT 0,
		behavior_confirmed INTEGER DEFAULT 0,
		arrival_confirmed INTEGER DEFAULT 0,
		timestamp TEXT,
		drinks TEXT,
		waitlisted INTEGER DEFAULT 0,
		position INTEGER DEFAULT 0
	);`

	if _, err := r.db.Exec(eventTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(responseTable); err != nil {
		return err
	}
	return nil
}

func (r *SQLiteStore) Load() (*Snapshot, error) {
	snap := &Snapshot{Responses: make(map[string]*EventResponses)}

	rows, err := r.db.Query(`SELECT event_name, venue, address, google_maps_link,
		event_datetime, event_deadline, max_capacity, open, archived, drinks, message
		FROM events`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ev Event
		var dtStr string
		var deadlineStr, drinksStr, message sql.NullString
		var maxCapacity sql.NullInt64
		var open, archived int
		if err := rows.Scan(&ev.EventName, &ev.Venue, &ev.Address, &ev.GoogleMapsLink,
			&dtStr, &deadlineStr, &maxCapacity, &open, &archived, &drinksStr, &message); err != nil {
			return nil, err
		}
		if ev.EventDatetime, err = time.Parse(time.RFC3339, dtStr); err != nil {
			return nil, fmt.Errorf("event '%s': bad datetime %q: %w", ev.EventName, dtStr, err)
		}
		if deadlineStr.Valid && deadlineStr.String != "" {
			deadline, err := time.Parse(time.RFC3339, deadlineStr.String)
			if err != nil {
				return nil, fmt.Errorf("event '%s': bad deadline %q: %w", ev.EventName, deadlineStr.String, err)
			}
			ev.EventDeadline = &deadline
		}
		if maxCapacity.Valid {
			capacity := int(maxCapacity.Int64)
			ev.MaxCapacity = &capacity
		}
		ev.Open = open == 1
		ev.Archived = archived == 1
		if drinksStr.Valid {
			ev.Drinks = splitDrinks(drinksStr.String)
		}
		if message.Valid {
			ev.Message = message.String
		}
		snap.Events = append(snap.Events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	respRows, err := r.db.Query(`SELECT event_name, user_id, chat_id, username,
		extra_people, behavior_confirmed, arrival_confirmed, timestamp, drinks, waitlisted
		FROM responses ORDER BY waitlisted ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer respRows.Close()

	for respRows.Next() {
		var resp Response
		var tsStr string
		var drinksStr sql.NullString
		var behavior, arrival, waitlisted int
		if err := respRows.Scan(&resp.EventName, &resp.UserID, &resp.ChatID, &resp.Username,
			&resp.ExtraPeople, &behavior, &arrival, &tsStr, &drinksStr, &waitlisted); err != nil {
			return nil, err
		}
		if resp.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return nil, fmt.Errorf("response for user %d: bad timestamp %q: %w", resp.UserID, tsStr, err)
		}
		resp.BehaviorConfirmed = behavior == 1
		resp.ArrivalConfirmed = arrival == 1
		if drinksStr.Valid {
			resp.Drinks = splitDrinks(drinksStr.String)
		}

		container, ok := snap.Responses[resp.EventName]
		if !ok {
			container = &EventResponses{}
			snap.Responses[resp.EventName] = container
		}
		if waitlisted == 1 {
			container.Waitlist = append(container.Waitlist, WaitlistEntry{resp})
		} else {
			container.Attendees = append(container.Attendees, resp)
		}
	}
	if err := respRows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *SQLiteStore) Save(snap *Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM responses"); err != nil {
		return err
	}

	eventStmt, err := tx.Prepare(`INSERT INTO events (event_name, venue, address,
		google_maps_link, event_datetime, event_deadline, max_capacity, open, archived, drinks, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, ev := range snap.Events {
		var deadline interface{}
		if ev.EventDeadline != nil {
			deadline = ev.EventDeadline.Format(time.RFC3339)
		}
		var capacity interface{}
		if ev.MaxCapacity != nil {
			capacity = *ev.MaxCapacity
		}
		if _, err := eventStmt.Exec(ev.EventName, ev.Venue, ev.Address, ev.GoogleMapsLink,
			ev.EventDatetime.Format(time.RFC3339), deadline, capacity,
			boolToInt(ev.Open), boolToInt(ev.Archived), joinDrinks(ev.Drinks), ev.Message); err != nil {
			return err
		}
	}

	respStmt, err := tx.Prepare(`INSERT INTO responses (event_name, user_id, chat_id,
		username, extra_people, behavior_confirmed, arrival_confirmed, timestamp, drinks, waitlisted, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer respStmt.Close()

	for eventName, container := range snap.Responses {
		for i := range container.Attendees {
			if err := insertResponse(respStmt, eventName, &container.Attendees[i], 0, i); err != nil {
				return err
			}
		}
		for i := range container.Waitlist {
			if err := insertResponse(respStmt, eventName, &container.Waitlist[i].Response, 1, i); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func insertResponse(stmt *sql.Stmt, eventName string, resp *Response, waitlisted, position int) error {
	_, err := stmt.Exec(eventName, resp.UserID, resp.ChatID, resp.Username,
		resp.ExtraPeople, boolToInt(resp.BehaviorConfirmed), boolToInt(resp.ArrivalConfirmed),
		resp.Timestamp.Format(time.RFC3339), joinDrinks(resp.Drinks), waitlisted, position)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinDrinks(drinks []string) string {
	return strings.Join(drinks, ",")
}

func splitDrinks(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
