package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Persistence is the storage contract the Store writes through. A backend
// loads the full snapshot at startup and replaces it on every mutation.
type Persistence interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// JSONFileStore persists the snapshot as two JSON files, mirroring the
// events/responses file split of the data this bot inherits. Writes go to
// a temp file first and are renamed over the old file, so a crash mid-write
// never leaves a truncated or duplicated list behind.
type JSONFileStore struct {
	EventsPath    string
	ResponsesPath string
}

func NewJSONFileStore(eventsPath, responsesPath string) *JSONFileStore {
	return &JSONFileStore{EventsPath: eventsPath, ResponsesPath: responsesPath}
}

func (j *JSONFileStore) Load() (*Snapshot, error) {
	events, err := j.loadEvents()
	if err != nil {
		return nil, err
	}
	responses, err := j.loadResponses()
	if err != nil {
		return nil, err
	}
	canonicalizeResponseKeys(events, responses)
	return &Snapshot{Events: events, Responses: responses}, nil
}

// canonicalizeResponseKeys re-keys containers whose map key differs in case
// from the event directory's stored name. Lookups go through the canonical
// name, so a container filed under a differently-cased key would otherwise
// be orphaned.
func canonicalizeResponseKeys(events []*Event, responses map[string]*EventResponses) {
	for key, container := range responses {
		var canonical string
		for _, ev := range events {
			if strings.EqualFold(ev.EventName, key) {
				canonical = ev.EventName
				break
			}
		}
		if canonical == "" || canonical == key {
			continue
		}
		for i := range container.Attendees {
			container.Attendees[i].EventName = canonical
		}
		for i := range container.Waitlist {
			container.Waitlist[i].EventName = canonical
		}
		if existing, ok := responses[canonical]; ok {
			existing.Attendees = append(existing.Attendees, container.Attendees...)
			existing.Waitlist = append(existing.Waitlist, container.Waitlist...)
		} else {
			responses[canonical] = container
		}
		delete(responses, key)
	}
}

func (j *JSONFileStore) Save(snap *Snapshot) error {
	eventsData, err := json.MarshalIndent(snap.Events, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	responsesData, err := json.MarshalIndent(snap.Responses, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}
	if err := writeFileAtomic(j.EventsPath, eventsData); err != nil {
		return fmt.Errorf("write events file: %w", err)
	}
	if err := writeFileAtomic(j.ResponsesPath, responsesData); err != nil {
		return fmt.Errorf("write responses file: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// rawEvent is the on-disk event shape. Older files omit the deadline,
// capacity, and drinks keys entirely, so everything optional is a pointer
// and defaults are supplied after decoding.
type rawEvent struct {
	EventName      string   `json:"event_name"`
	Venue          *string  `json:"venue"`
	Address        *string  `json:"address"`
	GoogleMapsLink *string  `json:"google_maps_link"`
	EventDatetime  string   `json:"event_datetime"`
	EventDeadline  *string  `json:"event_deadline"`
	MaxCapacity    *int     `json:"max_capacity"`
	Open           *bool    `json:"open"`
	Archived       *bool    `json:"archived"`
	Drinks         []string `json:"drinks"`
	Message        *string  `json:"message"`
}

func (j *JSONFileStore) loadEvents() ([]*Event, error) {
	data, err := os.ReadFile(j.EventsPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("%s not found, starting with no events", j.EventsPath)
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var raws []rawEvent
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.EventsPath, err)
	}

	var events []*Event
	for _, raw := range raws {
		ev, err := raw.toEvent()
		if err != nil {
			log.Printf("skipping event entry %q: %v", raw.EventName, err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (raw *rawEvent) toEvent() (*Event, error) {
	if raw.EventName == "" {
		return nil, fmt.Errorf("missing event_name")
	}
	dt, err := parseStoredTime(raw.EventDatetime)
	if err != nil {
		return nil, fmt.Errorf("bad event_datetime %q: %w", raw.EventDatetime, err)
	}

	ev := &Event{
		EventName:     raw.EventName,
		Venue:         "Unknown Venue",
		Address:       "Unknown Address",
		EventDatetime: dt,
		MaxCapacity:   raw.MaxCapacity,
		Drinks:        raw.Drinks,
	}
	if raw.Venue != nil {
		ev.Venue = *raw.Venue
	}
	if raw.Address != nil {
		ev.Address = *raw.Address
	}
	if raw.GoogleMapsLink != nil {
		ev.GoogleMapsLink = *raw.GoogleMapsLink
	}
	if raw.EventDeadline != nil && *raw.EventDeadline != "" {
		deadline, err := parseStoredTime(*raw.EventDeadline)
		if err != nil {
			log.Printf("event '%s': unparseable deadline %q, treating as unset", raw.EventName, *raw.EventDeadline)
		} else {
			ev.EventDeadline = &deadline
		}
	}
	if raw.Open != nil {
		ev.Open = *raw.Open
	}
	if raw.Archived != nil {
		ev.Archived = *raw.Archived
	}
	if raw.Message != nil {
		ev.Message = *raw.Message
	}
	return ev, nil
}

// parseStoredTime accepts RFC3339 plus the zone-less ISO form older files
// used; naive times are assumed to be JST and converted to UTC.
func parseStoredTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, JST)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// rawResponse is the on-disk response shape. Some historic files wrote
// the confirmation flags as "yes"/"no" strings instead of booleans.
type rawResponse struct {
	UserID            int64           `json:"user_id"`
	ChatID            int64           `json:"chat_id"`
	Username          *string         `json:"username"`
	ExtraPeople       int             `json:"extra_people"`
	BehaviorConfirmed json.RawMessage `json:"behavior_confirmed"`
	ArrivalConfirmed  json.RawMessage `json:"arrival_confirmed"`
	EventName         *string         `json:"event_name"`
	Timestamp         *string         `json:"timestamp"`
	Drinks            []string        `json:"drinks"`
}

func (raw *rawResponse) toResponse(eventName string) Response {
	resp := Response{
		UserID:            raw.UserID,
		ChatID:            raw.ChatID,
		Username:          "Unknown User",
		ExtraPeople:       raw.ExtraPeople,
		BehaviorConfirmed: flexBool(raw.BehaviorConfirmed),
		ArrivalConfirmed:  flexBool(raw.ArrivalConfirmed),
		EventName:         eventName,
		Timestamp:         time.Now().UTC(),
		Drinks:            raw.Drinks,
	}
	if raw.Username != nil {
		resp.Username = *raw.Username
	}
	if raw.EventName != nil && *raw.EventName != "" {
		resp.EventName = *raw.EventName
	}
	if raw.Timestamp != nil && *raw.Timestamp != "" {
		if ts, err := parseStoredTime(*raw.Timestamp); err == nil {
			resp.Timestamp = ts
		} else {
			log.Printf("could not parse timestamp %q for user %d", *raw.Timestamp, raw.UserID)
		}
	}
	return resp
}

// flexBool interprets true, "true" and "yes" (any case) as true.
func flexBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ToLower(s)
		return s == "yes" || s == "true"
	}
	return false
}

// rawEventResponses is the current container shape on disk.
type rawEventResponses struct {
	Attendees []rawResponse `json:"attendees"`
	Waitlist  []rawResponse `json:"waitlist"`
}

func (j *JSONFileStore) loadResponses() (map[string]*EventResponses, error) {
	responses := make(map[string]*EventResponses)

	data, err := os.ReadFile(j.ResponsesPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("%s not found, starting with no responses", j.ResponsesPath)
			return responses, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return responses, nil
	}

	var perEvent map[string]json.RawMessage
	if err := json.Unmarshal(data, &perEvent); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.ResponsesPath, err)
	}

	for eventName, rawList := range perEvent {
		container := &EventResponses{}

		// Files written before the waitlist existed hold a flat response
		// array per event; treat it as the attendee list.
		var oldFormat []rawResponse
		if err := json.Unmarshal(rawList, &oldFormat); err == nil {
			for i := range oldFormat {
				container.Attendees = append(container.Attendees, oldFormat[i].toResponse(eventName))
			}
			responses[eventName] = container
			continue
		}

		var current rawEventResponses
		if err := json.Unmarshal(rawList, &current); err != nil {
			log.Printf("skipping responses for event '%s': %v", eventName, err)
			continue
		}
		for i := range current.Attendees {
			container.Attendees = append(container.Attendees, current.Attendees[i].toResponse(eventName))
		}
		for i := range current.Waitlist {
			container.Waitlist = append(container.Waitlist, WaitlistEntry{current.Waitlist[i].toResponse(eventName)})
		}
		responses[eventName] = container
	}

	return responses, nil
}
