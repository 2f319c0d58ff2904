package calendar

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ExpandFunc turns a recurrence rule anchored at anchor into the sorted
// occurrence instants within [lower, upper], both bounds inclusive, with
// exclusions removed.
type ExpandFunc func(rule string, anchor, lower, upper time.Time, exclusions []time.Time) ([]time.Time, error)

// RRuleExpand is the default ExpandFunc, built on rrule-go. Exclusions are
// matched on the exact instant here; day-granularity matching is done by the
// RecurrenceExpander on top.
func RRuleExpand(rule string, anchor, lower, upper time.Time, exclusions []time.Time) ([]time.Time, error) {
	rule = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if rule == "" {
		return nil, errors.New("empty recurrence rule")
	}

	loc := anchor.Location()
	opt, err := rrule.StrToROptionInLocation(rule, loc)
	if err != nil {
		return nil, err
	}
	// The rule's cycle always starts at the event's own DTSTART.
	opt.Dtstart = anchor

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exclusions {
		set.ExDate(ex.In(loc))
	}

	return set.Between(lower.In(loc), upper.In(loc), true), nil
}
