package calendar

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SortCandidates orders a manual-selection list by start instant.
func SortCandidates(records []EventRecord) {
	SortByStart(records)
}

// SortDisplayNames orders display names the way the string comparator does.
func SortDisplayNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return CompareDisplayNames(names[i], names[j]) < 0
	})
}

// CompareDisplayNames compares two DisplayName strings by calendar date,
// then by wall-clock time parsed from the 12-hour field. Names that cannot
// be parsed sort after every parseable name and among themselves as plain
// strings.
func CompareDisplayNames(a, b string) int {
	da, ta, okA := parseDisplayName(a)
	db, tb, okB := parseDisplayName(b)
	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if c := da.Compare(db); c != 0 {
		return c
	}
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	default:
		return 0
	}
}

// parseDisplayName returns the date and minutes-after-midnight of a
// DisplayName.
func parseDisplayName(name string) (time.Time, int, bool) {
	fields := strings.SplitN(name, displaySeparator, 3)
	if len(fields) < 2 {
		return time.Time{}, 0, false
	}
	date, err := time.Parse(displayDateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return time.Time{}, 0, false
	}
	minutes, ok := parseClock12(fields[1])
	if !ok {
		return time.Time{}, 0, false
	}
	return date, minutes, true
}

// parseClock12 converts "hh:mm AM|PM" into minutes after midnight. PM adds
// 12 hours unless the hour is already 12; 12 AM is hour 0.
func parseClock12(s string) (int, bool) {
	clock, meridiem, found := strings.Cut(strings.TrimSpace(s), " ")
	if !found {
		return 0, false
	}
	hh, mm, found := strings.Cut(clock, ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	switch strings.ToUpper(strings.TrimSpace(meridiem)) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	default:
		return 0, false
	}
	return hour*60 + minute, true
}
