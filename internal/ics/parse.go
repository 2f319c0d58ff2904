package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"notecal/internal/domain"
	appLog "notecal/internal/log"
	"notecal/internal/model"
)

// Attendee parameters probed for a display name, in order. Providers differ
// on where they put it; the first non-empty one wins.
var attendeeNameParams = []string{"CN", "X-CN", "X-DISPLAYNAME"}

// Parse parses a single ICS payload into calendar items.
//
//   - Every top-level component becomes one Item tagged with its kind; only
//     VEVENTs carry an EventDefinition.
//   - Attendee data is normalized into model.Attendee here, once.
//   - RECURRENCE-ID overrides stay in the item list (marked) and are also
//     attached to their base event's Overrides map by whole-day key.
//   - All-day and floating times are wall-clock values in loc (nil means
//     time.Local), never in the host zone.
//   - A VEVENT that cannot be read is logged and skipped.
func Parse(src Source, body []byte, loc *time.Location) ([]model.Item, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.NewParseError("could not parse calendar data", errors.New("empty ICS body"))
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, domain.NewParseError("could not parse calendar data", err)
	}

	items := make([]model.Item, 0, len(cal.Components))
	bases := make(map[string]*model.EventDefinition)
	overrides := make([]*model.EventDefinition, 0)

	for _, comp := range cal.Components {
		switch c := comp.(type) {
		case *ical.VEvent:
			ev, perr := parseVEvent(src, c, loc)
			if perr != nil {
				// Log and skip this event, but keep parsing others.
				appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
				continue
			}
			items = append(items, model.Item{Kind: model.KindEvent, Event: ev})
			switch {
			case ev.IsOverride():
				overrides = append(overrides, ev)
			case ev.RRule != "" && ev.UID != "":
				bases[ev.UID] = ev
			}
		case *ical.VTodo:
			items = append(items, model.Item{Kind: model.KindTodo})
		case *ical.VBusy:
			items = append(items, model.Item{Kind: model.KindFreeBusy})
		case *ical.VJournal:
			items = append(items, model.Item{Kind: model.KindJournal})
		case *ical.VTimezone:
			items = append(items, model.Item{Kind: model.KindTimezone})
		default:
			items = append(items, model.Item{Kind: model.KindOther})
		}
	}

	orphans := 0
	for _, ov := range overrides {
		base, ok := bases[ov.UID]
		if !ok {
			orphans++
			continue
		}
		if base.Overrides == nil {
			base.Overrides = make(map[string]*model.EventDefinition)
		}
		base.Overrides[model.DayKey(*ov.RecurrenceID, base.Start.Location())] = ov
	}

	appLog.Info("ics parse completed",
		"id", src.ID,
		"url", redactURL(src.URL),
		"item_count", len(items),
		"override_count", len(overrides),
		"orphan_overrides", orphans,
	)
	return items, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (*model.EventDefinition, error) {
	out := &model.EventDefinition{SourceID: src.ID}

	// UID is optional here; overrides without one cannot be matched.
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = model.Status(strings.ToUpper(strings.TrimSpace(p.Value)))
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, err
	}

	allDay := false
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if vs := dtStartProp.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			allDay = true
		}
		if t, ok := wallClock(dtStartProp.Value, dtStartProp.ICalParameters, loc); ok {
			start = t
		}
	}
	out.Start = start

	end, err := ve.GetEndAt()
	if dtEndProp := ve.GetProperty(ical.ComponentPropertyDtEnd); err == nil && dtEndProp != nil {
		if t, ok := wallClock(dtEndProp.Value, dtEndProp.ICalParameters, loc); ok {
			end = t
		}
	}
	switch {
	case err == nil:
		out.End = end
	case allDay:
		out.End = start.AddDate(0, 0, 1)
	default:
		out.End = start
	}

	out.Attendees = normalizeAttendees(ve)

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RRule = strings.TrimSpace(rruleProp.Value)
	}

	// EXDATE can appear multiple times, each with a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, p.ICalParameters, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		t, err := parseICSTime(ridProp.Value, ridProp.ICalParameters, start.Location())
		if err != nil {
			// Kept as a plain event it would duplicate the base occurrence.
			return nil, fmt.Errorf("uid %q: invalid RECURRENCE-ID %q: %w", out.UID, ridProp.Value, err)
		}
		out.RecurrenceID = &t
	}

	return out, nil
}

// normalizeAttendees folds the provider-specific ATTENDEE shapes into
// model.Attendee. A missing list stays empty; the placeholder is applied
// when records are built.
func normalizeAttendees(ve *ical.VEvent) []model.Attendee {
	raw := ve.Attendees()
	if len(raw) == 0 {
		return nil
	}

	out := make([]model.Attendee, 0, len(raw))
	for _, a := range raw {
		params := a.ICalParameters

		var name string
		for _, key := range attendeeNameParams {
			if name = firstParam(params, key); name != "" {
				break
			}
		}

		address := strings.TrimSpace(a.Value)
		// iCloud and Exchange put a urn:uuid or placeholder in the value and
		// the real address in EMAIL.
		if email := firstParam(params, "EMAIL"); email != "" && !strings.Contains(address, "@") {
			address = "mailto:" + email
		}

		out = append(out, model.Attendee{
			Name:    name,
			Status:  normalizePartStat(firstParam(params, string(ical.ParameterParticipationStatus))),
			Address: address,
		})
	}
	return out
}

func normalizePartStat(v string) model.ParticipationStatus {
	switch model.ParticipationStatus(strings.ToUpper(strings.TrimSpace(v))) {
	case model.PartStatAccepted:
		return model.PartStatAccepted
	case model.PartStatDeclined:
		return model.PartStatDeclined
	case model.PartStatTentative:
		return model.PartStatTentative
	case model.PartStatNeedsAction:
		return model.PartStatNeedsAction
	default:
		return model.PartStatUnknown
	}
}

func firstParam(params map[string][]string, key string) string {
	for _, v := range params[key] {
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if v != "" {
			return v
		}
	}
	return ""
}

// wallClock re-reads a DATE or floating DATE-TIME value in loc. golang-ical
// reads those in time.Local; values with a TZID or a trailing Z are left to
// it and reported as !ok.
func wallClock(v string, params map[string][]string, loc *time.Location) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasSuffix(v, "Z") || firstParam(params, "TZID") != "" {
		return time.Time{}, false
	}
	t, err := parseICSTime(v, nil, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseICSTime parses an EXDATE / RECURRENCE-ID value. TZID wins when
// present, a trailing Z means UTC, otherwise the value is read in fallback
// (the event's own DTSTART location).
func parseICSTime(v string, params map[string][]string, fallback *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	loc := fallback
	if loc == nil {
		loc = time.Local
	}
	if tzid := firstParam(params, "TZID"); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
