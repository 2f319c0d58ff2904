package calendar

import (
	"time"

	"notecal/internal/model"
)

const ownerEmail = "me@example.com"

// refNow is the fixed reference instant used across the package tests.
var refNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func testSettings() Settings {
	s := DefaultSettings()
	s.Location = time.UTC
	s.FutureHours = 4
	s.RecentHours = 4
	return s
}

func ownerSettings() Settings {
	return testSettings().WithOwnerEmail(ownerEmail)
}

func def(summary string, start time.Time, dur time.Duration) model.EventDefinition {
	return model.EventDefinition{
		UID:     summary + "@test",
		Summary: summary,
		Status:  model.StatusConfirmed,
		Start:   start,
		End:     start.Add(dur),
	}
}

func rec(summary string, start time.Time, dur time.Duration) EventRecord {
	return NewEventRecord(def(summary, start, dur), testSettings())
}

func withOwner(status model.ParticipationStatus) []model.Attendee {
	return []model.Attendee{
		{Name: "Colleague", Status: model.PartStatAccepted, Address: "mailto:colleague@example.com"},
		{Status: status, Address: "mailto:" + ownerEmail},
	}
}

func summaries(records []EventRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Summary())
	}
	return out
}

func eventItem(d model.EventDefinition) model.Item {
	return model.Item{Kind: model.KindEvent, Event: &d}
}
