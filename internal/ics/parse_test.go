package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecal/internal/calendar"
	"notecal/internal/domain"
	"notecal/internal/model"
)

func icsFixture(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//notecal//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

var testSource = Source{ID: "work", URL: "https://calendar.example.com/private/abc.ics?token=secret"}

func TestParseItemsAndAttendees(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:single@test",
		"SUMMARY:Design review",
		"STATUS:confirmed",
		"DTSTART:20240603T100000Z",
		"DTEND:20240603T113000Z",
		"ATTENDEE;CN=Alice;PARTSTAT=ACCEPTED:mailto:alice@example.com",
		"ATTENDEE;PARTSTAT=declined:mailto:me@example.com",
		"ATTENDEE;EMAIL=bob@example.com;X-CN=Bob:urn:uuid:1234",
		"END:VEVENT",
		"BEGIN:VTODO",
		"UID:todo@test",
		"SUMMARY:Write notes",
		"END:VTODO",
	)

	items, err := Parse(testSource, body, time.UTC)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, model.KindEvent, items[0].Kind)
	assert.Equal(t, model.KindTodo, items[1].Kind)
	assert.Nil(t, items[1].Event)

	ev := items[0].Event
	require.NotNil(t, ev)
	assert.Equal(t, "work", ev.SourceID)
	assert.Equal(t, "single@test", ev.UID)
	assert.Equal(t, "Design review", ev.Summary)
	assert.Equal(t, model.StatusConfirmed, ev.Status)
	assert.Equal(t, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, 90*time.Minute, ev.Duration())
	assert.False(t, ev.IsRecurring())

	assert.Equal(t, []model.Attendee{
		{Name: "Alice", Status: model.PartStatAccepted, Address: "mailto:alice@example.com"},
		{Status: model.PartStatDeclined, Address: "mailto:me@example.com"},
		{Name: "Bob", Status: model.PartStatUnknown, Address: "mailto:bob@example.com"},
	}, ev.Attendees)
}

func TestParseRecurringWithOverride(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:standup@test",
		"SUMMARY:Standup",
		"DTSTART:20240603T090000Z",
		"DTEND:20240603T091500Z",
		"RRULE:FREQ=DAILY;COUNT=5",
		"EXDATE:20240604T090000Z,20240605T090000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup@test",
		"RECURRENCE-ID:20240606T090000Z",
		"SUMMARY:Standup (moved)",
		"DTSTART:20240606T140000Z",
		"DTEND:20240606T141500Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:orphan@test",
		"RECURRENCE-ID:20240606T090000Z",
		"SUMMARY:Orphan",
		"DTSTART:20240606T150000Z",
		"DTEND:20240606T151500Z",
		"END:VEVENT",
	)

	items, err := Parse(testSource, body, time.UTC)
	require.NoError(t, err)
	require.Len(t, items, 3)

	base := items[0].Event
	require.NotNil(t, base)
	assert.True(t, base.IsRecurring())
	assert.Equal(t, "FREQ=DAILY;COUNT=5", base.RRule)
	require.Len(t, base.ExDates, 2)
	assert.Equal(t, time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC), base.ExDates[1].UTC())

	require.Len(t, base.Overrides, 1)
	ov, ok := base.Overrides["2024-06-06"]
	require.True(t, ok)
	assert.Equal(t, "Standup (moved)", ov.Summary)
	assert.True(t, ov.IsOverride())
	assert.True(t, items[1].Event.IsOverride(), "overrides stay in the item list")
	assert.True(t, items[2].Event.IsOverride())
}

func TestParseAllDayWithoutEnd(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:holiday@test",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20240610",
		"END:VEVENT",
	)

	items, err := Parse(testSource, body, time.UTC)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 24*time.Hour, items[0].Event.Duration())
}

// withLocal swaps time.Local for the duration of the test.
func withLocal(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func TestParseAllDayUsesDisplayLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	withLocal(t, time.UTC)

	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:offsite@test",
		"SUMMARY:Offsite",
		"DTSTART;VALUE=DATE:20240603",
		"DTEND;VALUE=DATE:20240604",
		"RRULE:FREQ=WEEKLY;COUNT=3",
		"EXDATE;VALUE=DATE:20240610",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:floating@test",
		"SUMMARY:Floating",
		"DTSTART:20240603T090000",
		"DTEND:20240603T100000",
		"END:VEVENT",
	)

	items, err := Parse(testSource, body, ny)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ev := items[0].Event
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, ny), ev.Start)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, ny), ev.End)
	require.Len(t, ev.ExDates, 1)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, ny), ev.ExDates[0])

	settings := calendar.DefaultSettings()
	settings.Location = ny
	rec := calendar.NewEventRecord(*ev, settings)
	assert.Equal(t, "📅 2024-06-03 Offsite", rec.Title())
	assert.Equal(t, "6/3/2024 | 12:00 AM | 24h | Offsite", rec.DisplayName())

	floating := items[1].Event
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, ny), floating.Start)
	assert.Equal(t, time.Hour, floating.Duration())
}

func TestParseAllDayIgnoresHostZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:holiday@test",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20240610",
		"END:VEVENT",
	)

	var starts []time.Time
	for _, host := range []*time.Location{time.UTC, tokyo} {
		withLocal(t, host)
		items, err := Parse(testSource, body, time.UTC)
		require.NoError(t, err)
		require.Len(t, items, 1)
		starts = append(starts, items[0].Event.Start)
	}
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, starts[0], starts[1])
}

func TestParseSkipsOverrideWithInvalidRecurrenceID(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:standup@test",
		"SUMMARY:Standup",
		"DTSTART:20240603T090000Z",
		"DTEND:20240603T091500Z",
		"RRULE:FREQ=DAILY;COUNT=5",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup@test",
		"RECURRENCE-ID:not-a-date",
		"SUMMARY:Standup (moved)",
		"DTSTART:20240606T140000Z",
		"DTEND:20240606T141500Z",
		"END:VEVENT",
	)

	items, err := Parse(testSource, body, time.UTC)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Standup", items[0].Event.Summary)
	assert.Empty(t, items[0].Event.Overrides)
}

func TestParseSkipsUnreadableEvents(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:nostart@test",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok@test",
		"SUMMARY:Fine",
		"DTSTART:20240603T100000Z",
		"DTEND:20240603T110000Z",
		"END:VEVENT",
	)

	items, err := Parse(testSource, body, time.UTC)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fine", items[0].Event.Summary)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "whitespace", body: []byte("  \r\n ")},
		{name: "garbage", body: []byte("this is not a calendar")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(testSource, tc.body, time.UTC)
			require.Error(t, err)
			assert.Equal(t, domain.ErrorTypeParse, domain.GetErrorType(err))
			assert.Equal(t, "could not parse calendar data", domain.UserMessage(err))
		})
	}
}

func TestParseICSTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	got, err := parseICSTime("20240603T090000", map[string][]string{"TZID": {"America/New_York"}}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, ny).Unix(), got.Unix())

	got, err = parseICSTime("20240603T090000Z", nil, ny)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), got)

	got, err = parseICSTime("20240603", nil, ny)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", got.Format(time.DateOnly))
	assert.Equal(t, ny, got.Location())

	_, err = parseICSTime(" ", nil, ny)
	assert.Error(t, err)
}
