package calendar

import (
	"slices"
	"time"
)

// Settings is the read-only snapshot of user preferences that every
// EventRecord classifies against. It is a value type: build it once per
// operation and pass it by value.
type Settings struct {
	// OwnerEmail identifies the user among attendees. Empty means every
	// event counts as attended.
	OwnerEmail string
	// IgnoredTitles are event summaries (exact, case-sensitive) never
	// offered for sync.
	IgnoredTitles []string
	// FutureHours bounds how far ahead an event counts as upcoming.
	FutureHours int
	// RecentHours bounds how long after its end an event counts as recent.
	RecentHours int
	// SelectablePastDays / SelectableFutureDays bound the manual selection window.
	SelectablePastDays   int
	SelectableFutureDays int
	// Location is the zone dates are rendered in. Nil means time.Local.
	Location *time.Location
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		FutureHours:          12,
		RecentHours:          12,
		SelectablePastDays:   1,
		SelectableFutureDays: 7,
		Location:             time.Local,
	}
}

// WithOwnerEmail returns a copy of s with a different owner email. Used for
// feeds that belong to another account.
func (s Settings) WithOwnerEmail(email string) Settings {
	s.IgnoredTitles = slices.Clone(s.IgnoredTitles)
	s.OwnerEmail = email
	return s
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s Settings) futureWindow() time.Duration {
	return time.Duration(s.FutureHours) * time.Hour
}

func (s Settings) recentWindow() time.Duration {
	return time.Duration(s.RecentHours) * time.Hour
}

func (s Settings) isIgnored(title string) bool {
	return slices.Contains(s.IgnoredTitles, title)
}
