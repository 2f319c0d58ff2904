package calendar

import (
	"sort"
	"time"

	appLog "notecal/internal/log"
	"notecal/internal/model"
)

// MinimumProcessingInstant is the age cutoff for a processing run: nothing
// that starts (or, for recurring events, occurs) before it is surfaced.
func MinimumProcessingInstant(now time.Time) time.Time {
	return now.AddDate(0, -2, 0)
}

// FeedProcessor turns the parsed items of one feed into time-sorted records.
type FeedProcessor struct {
	Expander *RecurrenceExpander
}

// NewFeedProcessor returns a processor with the default rrule-go expander.
func NewFeedProcessor() *FeedProcessor {
	return &FeedProcessor{Expander: NewRecurrenceExpander()}
}

// Process partitions items into plain events and recurrence bases, expands
// the latter, applies the age cutoff and returns the records sorted by start
// (stable on ties).
//
// Non-event items and override events are skipped; overrides are reached
// through their base's Overrides map. Non-recurring events are kept on age
// alone: attendance, ignore and cancellation are applied by the selector.
func (p *FeedProcessor) Process(items []model.Item, settings Settings, now time.Time) []EventRecord {
	expander := p.Expander
	if expander == nil {
		expander = NewRecurrenceExpander()
	}

	minInstant := MinimumProcessingInstant(now)
	out := make([]EventRecord, 0, len(items))
	skipped := 0

	for _, item := range items {
		if item.Kind != model.KindEvent || item.Event == nil {
			skipped++
			continue
		}
		ev := item.Event
		if ev.IsOverride() {
			continue
		}

		if ev.IsRecurring() {
			out = append(out, expander.Expand(ev, minInstant, now, settings)...)
			continue
		}

		if ev.Start.Before(minInstant) {
			continue
		}
		out = append(out, NewEventRecord(*ev, settings))
	}

	SortByStart(out)

	appLog.Debug("feed processed",
		"items", len(items),
		"non_event_items", skipped,
		"records", len(out),
		"min_instant", minInstant.Format(time.RFC3339),
	)
	return out
}

// SortByStart sorts records ascending by start instant, keeping the original
// order for equal starts.
func SortByStart(records []EventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Start().Before(records[j].Start())
	})
}
