package model

import "time"

// Status is the VEVENT STATUS value.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusTentative Status = "TENTATIVE"
)

// ParticipationStatus is an attendee's PARTSTAT, normalized to upper case.
type ParticipationStatus string

const (
	PartStatAccepted    ParticipationStatus = "ACCEPTED"
	PartStatDeclined    ParticipationStatus = "DECLINED"
	PartStatTentative   ParticipationStatus = "TENTATIVE"
	PartStatNeedsAction ParticipationStatus = "NEEDS-ACTION"
	PartStatUnknown     ParticipationStatus = "UNKNOWN"
)

// UnavailableAttendeeName is the display name of the placeholder attendee
// substituted when a feed exposes no attendee data for an event.
const UnavailableAttendeeName = "Attendee data unavailable"

// Attendee is the canonical attendee shape. Provider-specific fields are
// folded into it once, at parse time.
type Attendee struct {
	// Name is the CN (display name); may be empty.
	Name string
	// Status is the participation status.
	Status ParticipationStatus
	// Address is the raw calendar address token, e.g. "mailto:a@b.org".
	Address string
}

// UnavailableAttendee returns the sentinel placeholder attendee.
func UnavailableAttendee() Attendee {
	return Attendee{
		Name:   UnavailableAttendeeName,
		Status: PartStatUnknown,
	}
}

// EventDefinition is one VEVENT as produced by the ICS parser, before
// recurrence expansion.
type EventDefinition struct {
	SourceID string // feed ID the event came from
	UID      string // iCalendar UID; may be empty

	Summary string
	Status  Status

	Start time.Time
	End   time.Time

	Attendees []Attendee

	// RRule is the raw RRULE value; empty for non-recurring events.
	RRule string
	// ExDates are the excluded instants of a recurring event.
	ExDates []time.Time
	// Overrides are per-occurrence replacement definitions keyed by
	// DayKey of their RECURRENCE-ID in the base event's location.
	Overrides map[string]*EventDefinition

	// RecurrenceID is set only on override records (RECURRENCE-ID present).
	RecurrenceID *time.Time
}

// IsRecurring reports whether the definition is a recurrence base.
func (e *EventDefinition) IsRecurring() bool {
	return e.RRule != "" && !e.IsOverride()
}

// IsOverride reports whether the definition modifies one recurrence instance.
func (e *EventDefinition) IsOverride() bool {
	return e.RecurrenceID != nil
}

// Duration is End - Start; may be zero or negative for malformed input.
func (e *EventDefinition) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DayKey is the whole-day key used to match EXDATE and RECURRENCE-ID values
// against generated occurrences. t is converted into loc first.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = t.Location()
	}
	return t.In(loc).Format("2006-01-02")
}

// ItemKind tags a top-level iCalendar component.
type ItemKind string

const (
	KindEvent    ItemKind = "VEVENT"
	KindTodo     ItemKind = "VTODO"
	KindFreeBusy ItemKind = "VFREEBUSY"
	KindJournal  ItemKind = "VJOURNAL"
	KindTimezone ItemKind = "VTIMEZONE"
	KindOther    ItemKind = "OTHER"
)

// Item is one parsed calendar component. Event is non-nil only for
// KindEvent items.
type Item struct {
	Kind  ItemKind
	Event *EventDefinition
}
