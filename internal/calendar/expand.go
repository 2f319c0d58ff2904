package calendar

import (
	"errors"
	"time"

	"notecal/internal/domain"
	appLog "notecal/internal/log"
	"notecal/internal/model"
)

const (
	// ExpansionHorizon is how far past "now" recurring events are expanded,
	// whatever window the caller later selects from.
	ExpansionHorizon = 30 * 24 * time.Hour

	defaultMaxOccurrencesPerEvent = 5000
)

// RecurrenceExpander turns a recurrence base into concrete records.
type RecurrenceExpander struct {
	// Primitive computes occurrence instants. Nil means RRuleExpand.
	Primitive ExpandFunc

	// MaxOccurrences is a safety cap per base event. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrences int
}

// NewRecurrenceExpander returns an expander backed by rrule-go.
func NewRecurrenceExpander() *RecurrenceExpander {
	return &RecurrenceExpander{
		Primitive:      RRuleExpand,
		MaxOccurrences: defaultMaxOccurrencesPerEvent,
	}
}

// Expand produces the records of base that fall within
// [minInstant, now+ExpansionHorizon]. It handles:
//
//   - EXDATE removal, matched by whole day in the base event's location
//   - RECURRENCE-ID overrides, matched by whole day and substituted in full
//   - duration preservation for synthetic occurrences
//
// Records that are not attended, ignored or cancelled are dropped here,
// since overrides can carry a cancellation or decline the base does not.
// A rule that fails to parse yields no records; the failure is logged.
func (x *RecurrenceExpander) Expand(base *model.EventDefinition, minInstant, now time.Time, settings Settings) []EventRecord {
	if base == nil || base.RRule == "" {
		return nil
	}

	upper := now.Add(ExpansionHorizon)
	if minInstant.After(upper) {
		return nil
	}

	primitive := x.Primitive
	if primitive == nil {
		primitive = RRuleExpand
	}
	maxOcc := x.MaxOccurrences
	if maxOcc <= 0 {
		maxOcc = defaultMaxOccurrencesPerEvent
	}

	instants, err := primitive(base.RRule, base.Start, minInstant, upper, base.ExDates)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE",
			domain.NewRecurrenceError("recurrence rule could not be expanded", err),
			"uid", base.UID,
			"source", base.SourceID,
			"rrule", base.RRule,
		)
		return nil
	}

	if len(instants) > maxOcc {
		appLog.Error("expand: truncated occurrences due to cap",
			errors.New("max occurrences reached"),
			"uid", base.UID,
			"cap", maxOcc,
		)
		instants = instants[:maxOcc]
	}

	loc := base.Start.Location()
	excluded := make(map[string]struct{}, len(base.ExDates))
	for _, ex := range base.ExDates {
		excluded[model.DayKey(ex, loc)] = struct{}{}
	}

	dur := base.Duration()
	out := make([]EventRecord, 0, len(instants))
	for _, occStart := range instants {
		key := model.DayKey(occStart, loc)
		if _, skip := excluded[key]; skip {
			continue
		}

		var rec EventRecord
		if ov, ok := base.Overrides[key]; ok && ov != nil {
			rec = NewEventRecord(*ov, settings)
		} else {
			occ := *base
			occ.Start = occStart
			occ.End = occStart.Add(dur)
			occ.RRule = ""
			rec = NewEventRecord(occ, settings)
		}

		if !rec.IsAttending() || rec.IsIgnored() || rec.IsCancelled() {
			continue
		}
		out = append(out, rec)
	}

	appLog.Debug("expand: recurrence expanded",
		"uid", base.UID,
		"instants", len(instants),
		"records", len(out),
	)
	return out
}
