package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"notecal/internal/model"
)

const (
	titleGlyph        = "📅"
	displayDateLayout = "1/2/2006"
	displayTimeLayout = "03:04 PM"
	displaySeparator  = " | "

	// AttendeesHeading opens the attendee block written into notes.
	AttendeesHeading = "## Attendees:"
)

var (
	titleReplacer = strings.NewReplacer("/", " ", ":", " ")

	mailtoPattern = regexp.MustCompile(`(?i)mailto:([^\s;,<>"]+)`)
	emailPattern  = regexp.MustCompile(`[^\s:;,<>"]+@[^\s:;,<>"]+`)
)

// EventRecord is one concrete occurrence together with the settings it is
// classified against. Records are built once and never mutated.
type EventRecord struct {
	def       model.EventDefinition
	attendees []model.Attendee
	settings  Settings
}

// NewEventRecord wraps one occurrence definition. An empty attendee list is
// replaced by the "attendee data unavailable" placeholder.
func NewEventRecord(def model.EventDefinition, settings Settings) EventRecord {
	attendees := make([]model.Attendee, len(def.Attendees))
	copy(attendees, def.Attendees)
	if len(attendees) == 0 {
		attendees = []model.Attendee{model.UnavailableAttendee()}
	}
	def.Attendees = nil
	def.Overrides = nil
	def.ExDates = nil

	return EventRecord{
		def:       def,
		attendees: attendees,
		settings:  settings,
	}
}

func (r EventRecord) UID() string             { return r.def.UID }
func (r EventRecord) SourceID() string        { return r.def.SourceID }
func (r EventRecord) Summary() string         { return r.def.Summary }
func (r EventRecord) Status() model.Status    { return r.def.Status }
func (r EventRecord) Start() time.Time        { return r.def.Start }
func (r EventRecord) End() time.Time          { return r.def.End }
func (r EventRecord) Duration() time.Duration { return r.def.End.Sub(r.def.Start) }
func (r EventRecord) Settings() Settings      { return r.settings }

// Attendees returns a copy of the attendee list; it is never empty.
func (r EventRecord) Attendees() []model.Attendee {
	out := make([]model.Attendee, len(r.attendees))
	copy(out, r.attendees)
	return out
}

// IsAttending reports whether the owner attends the event. With no owner
// email configured every event is attended. Otherwise an attendee whose
// address, extracted email or name equals the owner email exactly must exist
// and must not have declined. The placeholder attendee never matches, so an
// event without attendee data is not attended once an owner is configured.
func (r EventRecord) IsAttending() bool {
	owner := r.settings.OwnerEmail
	if owner == "" {
		return true
	}
	for _, a := range r.attendees {
		if !attendeeMatches(a, owner) {
			continue
		}
		if a.Status != model.PartStatDeclined {
			return true
		}
	}
	return false
}

func attendeeMatches(a model.Attendee, owner string) bool {
	if a.Address != "" && (a.Address == owner || ExtractEmail(a.Address) == owner) {
		return true
	}
	return a.Name != "" && a.Name == owner
}

func (r EventRecord) IsIgnored() bool {
	return r.settings.isIgnored(r.def.Summary)
}

func (r EventRecord) IsCancelled() bool {
	return r.def.Status == model.StatusCancelled
}

// IsActivelyOccurring is start <= now <= end.
func (r EventRecord) IsActivelyOccurring(now time.Time) bool {
	return !now.Before(r.def.Start) && !now.After(r.def.End)
}

// IsUpcoming is now < start <= now+FutureHours.
func (r EventRecord) IsUpcoming(now time.Time) bool {
	limit := now.Add(r.settings.futureWindow())
	return r.def.Start.After(now) && !r.def.Start.After(limit)
}

// IsRecent is now-RecentHours <= end < now.
func (r EventRecord) IsRecent(now time.Time) bool {
	limit := now.Add(-r.settings.recentWindow())
	return r.def.End.Before(now) && !r.def.End.Before(limit)
}

// NormalizedTitle is the summary with '/' and ':' replaced by spaces.
func (r EventRecord) NormalizedTitle() string {
	return NormalizeTitle(r.def.Summary)
}

// NormalizeTitle replaces every '/' and ':' with a space and returns the
// NFC form, so the result is safe as a note file name.
func NormalizeTitle(summary string) string {
	return norm.NFC.String(titleReplacer.Replace(summary))
}

// Title is the note title: glyph, local ISO date, normalized summary.
func (r EventRecord) Title() string {
	date := r.def.Start.In(r.settings.location()).Format(time.DateOnly)
	return titleGlyph + " " + date + " " + r.NormalizedTitle()
}

// DisplayName is "date | time | duration | title". CompareDisplayNames
// parses this exact layout.
func (r EventRecord) DisplayName() string {
	start := r.def.Start.In(r.settings.location())
	return strings.Join([]string{
		start.Format(displayDateLayout),
		start.Format(displayTimeLayout),
		FormatDuration(r.Duration()),
		r.NormalizedTitle(),
	}, displaySeparator)
}

// FormatDuration renders d as "{h}h {m}m", dropping zero components.
// Zero and negative durations render as "0m".
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// AttendeesMarkdown renders the "## Attendees:" block, one bullet per attendee.
func (r EventRecord) AttendeesMarkdown() string {
	var b strings.Builder
	b.WriteString(AttendeesHeading)
	b.WriteString("\n")
	for _, a := range r.attendees {
		b.WriteString("- ")
		b.WriteString(attendeeLabel(a))
		b.WriteString("\n")
	}
	return b.String()
}

func attendeeLabel(a model.Attendee) string {
	if a.Name != "" {
		return a.Name
	}
	if email := ExtractEmail(a.Address); email != "" {
		return email
	}
	return "Unknown"
}

// ExtractEmail pulls an email address out of a raw calendar address token,
// either after a "mailto:" prefix or as a bare local@domain.
func ExtractEmail(token string) string {
	if m := mailtoPattern.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return emailPattern.FindString(token)
}
