package calendar

// Merge interleaves the record lists of several feeds into one sequence
// sorted by start. Records with equal starts keep feed order, then list order.
func Merge(lists ...[]EventRecord) []EventRecord {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]EventRecord, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	SortByStart(out)
	return out
}
