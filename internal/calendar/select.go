package calendar

import "time"

// eligible is the filter shared by both selection operations.
func eligible(r EventRecord) bool {
	return r.IsAttending() && !r.IsIgnored() && !r.IsCancelled()
}

// FindClosestEvent picks the event to sync automatically. Among eligible
// events, in order of precedence:
//
//  1. the first actively-occurring event in list order;
//  2. the upcoming event with the earliest start;
//  3. the recent event with the latest end.
//
// The second result is false when nothing qualifies.
func FindClosestEvent(events []EventRecord, now time.Time) (EventRecord, bool) {
	var (
		upcoming, recent         EventRecord
		haveUpcoming, haveRecent bool
	)

	for _, ev := range events {
		if !eligible(ev) {
			continue
		}
		if ev.IsActivelyOccurring(now) {
			return ev, true
		}
		if ev.IsUpcoming(now) && (!haveUpcoming || ev.Start().Before(upcoming.Start())) {
			upcoming, haveUpcoming = ev, true
		}
		if ev.IsRecent(now) && (!haveRecent || ev.End().After(recent.End())) {
			recent, haveRecent = ev, true
		}
	}

	if haveUpcoming {
		return upcoming, true
	}
	if haveRecent {
		return recent, true
	}
	return EventRecord{}, false
}

// SelectableEvents returns the eligible events starting within
// [now-SelectablePastDays, now+SelectableFutureDays], bounds inclusive,
// in input order.
func SelectableEvents(events []EventRecord, now time.Time) []EventRecord {
	out := make([]EventRecord, 0)
	for _, ev := range events {
		if !eligible(ev) {
			continue
		}
		s := ev.Settings()
		from := now.AddDate(0, 0, -s.SelectablePastDays)
		to := now.AddDate(0, 0, s.SelectableFutureDays)
		start := ev.Start()
		if start.Before(from) || start.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
